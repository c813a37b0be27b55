// stackbench runs the sharded searcher on a canned benchmark position and
// reports throughput:
//
//	stackbench [flags] <cores> <time_ms> [<test_index>]
//
// It prints the best root action's reward followed by node, back-propagation
// and depth statistics. Exit code 1 on argument errors.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/janpfeifer/must"
	"github.com/janpfeifer/stackGo/internal/ai"
	"github.com/janpfeifer/stackGo/internal/parameters"
	"github.com/janpfeifer/stackGo/internal/searchers/sharded"
	"github.com/janpfeifer/stackGo/internal/state"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var flagConfig = flag.String("config", "",
	"Searcher configuration, e.g. \"style=sampled,temperature=0.8,seed=42\".")

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <cores> <time_ms> [<test_index>]\n", os.Args[0])
	flag.PrintDefaults()
}

// parseArgs validates the positional arguments.
func parseArgs(args []string) (cores, timeMS, testIndex int, err error) {
	if len(args) < 2 || len(args) > 3 {
		return 0, 0, 0, errors.Errorf("expected 2 or 3 arguments, got %d", len(args))
	}
	if cores, err = strconv.Atoi(args[0]); err != nil || cores <= 0 {
		return 0, 0, 0, errors.Errorf("invalid cores %q, want a positive integer", args[0])
	}
	if timeMS, err = strconv.Atoi(args[1]); err != nil || timeMS < 0 {
		return 0, 0, 0, errors.Errorf("invalid time_ms %q, want a non-negative integer", args[1])
	}
	if len(args) == 3 {
		if testIndex, err = strconv.Atoi(args[2]); err != nil {
			return 0, 0, 0, errors.Errorf("invalid test_index %q", args[2])
		}
	}
	if testIndex < 0 || testIndex >= state.NumTestGames {
		return 0, 0, 0, errors.Errorf("test_index must be in [0, %d)", state.NumTestGames)
	}
	return cores, timeMS, testIndex, nil
}

func main() {
	klog.InitFlags(nil)
	flag.Usage = usage
	flag.Parse()

	cores, timeMS, testIndex, err := parseArgs(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		usage()
		os.Exit(1)
	}

	defer startProfiling()()

	game := must.M1(state.TestGame(testIndex))
	searcher := must.M1(sharded.NewFromParams(
		ai.NewHeuristic(), parameters.NewFromConfigString(*flagConfig)))

	klog.V(1).Infof("searching test position %d for %dms on %d cores", testIndex, timeMS, cores)
	searcher.StartSearch(game, cores)
	time.Sleep(time.Duration(timeMS) * time.Millisecond)
	searcher.EndSearch()

	printStrength(searcher)
	printStatistics(searcher)
}

// printStrength reports the reward statistic of the action the searcher would
// play, a quick proxy for search quality.
func printStrength(searcher *sharded.Searcher) {
	reward, ok := searcher.BestReward()
	if !ok {
		return
	}
	fmt.Printf("%v\n", reward)
	if move, ok := searcher.BestMove(); ok {
		klog.V(1).Infof("best move: %s", move)
	}
}

func printStatistics(searcher *sharded.Searcher) {
	stats := searcher.Statistics()
	fmt.Printf("nodes: %d\n", stats.Nodes)
	fmt.Printf("nodes / second: %.0f\n", stats.NodesPerSec)
	fmt.Printf("backprops / second: %.0f\n", stats.BackpropsPerSec)
	fmt.Printf("tree depth: %d\n", stats.MaxDepth)
}
