package w1

// kernel w1 subsystem exposed as periph onewire bus
import _ "periph.io/x/periph/host/netlink"
