package main

import (
	"flag"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime/pprof"
	"strconv"

	"k8s.io/klog/v2"
)

var (
	flagCPUProfile = flag.String("cpu_profile", "",
		"Write a CPU profile of the search to `file`.")
	flagProfPort = flag.Int("prof", -1,
		"If set, serves /debug/pprof on localhost at the given port while the benchmark runs.")
)

// startProfiling honors the profiling flags. The returned function must be
// deferred; it stops the CPU profile before the process exits.
func startProfiling() (stop func()) {
	if *flagProfPort >= 0 {
		addr := "localhost:" + strconv.Itoa(*flagProfPort)
		klog.Infof("profiler listening on http://%s/debug/pprof", addr)
		go func() {
			klog.Fatal(http.ListenAndServe(addr, nil))
		}()
	}
	if *flagCPUProfile == "" {
		return func() {}
	}
	f, err := os.Create(*flagCPUProfile)
	if err != nil {
		klog.Exitf("could not create CPU profile %q: %v", *flagCPUProfile, err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		klog.Exitf("could not start CPU profile: %v", err)
	}
	return func() {
		pprof.StopCPUProfile()
		if err := f.Close(); err != nil {
			klog.Errorf("failed closing CPU profile %q: %v", *flagCPUProfile, err)
		}
	}
}
