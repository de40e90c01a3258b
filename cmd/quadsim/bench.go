package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/force"
	"github.com/san-kum/quadsim/internal/initial"
	"github.com/san-kum/quadsim/internal/quadtree"
)

var benchThetas = []float64{0, 0.25, 0.5, 0.75, 1.0}

func benchForces(cmd *cobra.Command, args []string) error {
	cfg, sc, err := simFromFlags(cmd)
	if err != nil {
		return err
	}

	provider, err := initial.NewRegistry().Get(cfg.Distribution)
	if err != nil {
		return err
	}
	pts := provider.Generate(rand.New(rand.NewSource(cfg.Seed)), benchN, sc.Domain)

	fmt.Printf("benchmarking %d %s points (capacity=%d, workers=%d)\n\n", len(pts), cfg.Distribution, sc.Tree.Capacity, sc.Workers)

	start := time.Now()
	refX, refY := force.New(sc.Force).Direct(pts)
	direct := time.Since(start)

	start = time.Now()
	tree := quadtree.New(sc.Domain, sc.Tree, quadtree.NewPointPool(sc.Tree.Capacity))
	tree.InsertAll(pts)
	build := time.Since(start)
	defer tree.Release()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tTHETA\tTIME\tSPEEDUP\tINTER/PT\tREL ERR")
	fmt.Fprintf(w, "direct\t-\t%v\t1.0x\t%d\t0\n", direct.Round(time.Microsecond), len(pts)-1)

	ax := make([]float64, len(pts))
	ay := make([]float64, len(pts))
	for _, th := range benchThetas {
		fc := sc.Force
		fc.Theta = th
		eval := force.New(fc)

		var interactions atomic.Int64
		start := time.Now()
		err := dynamo.ParallelFor(context.Background(), len(pts), 256, sc.Workers, func(lo, hi int) error {
			var local int64
			for i := lo; i < hi; i++ {
				s := eval.Evaluate(pts[i], tree.Root)
				ax[i], ay[i] = s.AX, s.AY
				local += int64(s.Near + s.Far)
			}
			interactions.Add(local)
			return nil
		})
		if err != nil {
			return err
		}
		elapsed := time.Since(start) + build

		fmt.Fprintf(w, "barnes-hut\t%.2f\t%v\t%.1fx\t%.1f\t%.2e\n",
			th,
			elapsed.Round(time.Microsecond),
			direct.Seconds()/elapsed.Seconds(),
			float64(interactions.Load())/float64(len(pts)),
			force.RelativeError(ax, ay, refX, refY),
		)
	}

	return w.Flush()
}
