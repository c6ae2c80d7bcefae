package main

import (
	"flag"

	klog "k8s.io/klog/v2"
)

// quietKlog keeps client-go and Helm klog output off the terminal.
func quietKlog() {
	klog.InitFlags(nil)
	_ = flag.Set("stderrthreshold", "FATAL")
	_ = flag.Set("v", "0")
	_ = flag.Set("logtostderr", "false")
	_ = flag.Set("alsologtostderr", "false")
}
