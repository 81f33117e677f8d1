package benchmark_test

import (
	"fmt"
	"testing"

	"github.com/hupe1980/meshadapt/geometry"
	"github.com/hupe1980/meshadapt/hilbert"
	"github.com/hupe1980/meshadapt/testutil"
)

func BenchmarkHilbertKey(b *testing.B) {
	for _, dim := range []int{1, 2, 3} {
		for _, depth := range []int{4, hilbert.DefaultDepth} {
			b.Run(fmt.Sprintf("dim=%d/depth=%d", dim, depth), func(b *testing.B) {
				box := geometry.NewBox(dim)
				rng := testutil.NewRNG(benchSeed)
				points := make([][]float64, 1024)
				for i := range points {
					points[i] = rng.Point(dim)
					if err := box.Extend(points[i]); err != nil {
						b.Fatal(err)
					}
				}
				h, err := hilbert.New(box, depth)
				if err != nil {
					b.Fatal(err)
				}

				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					_ = h.Key(points[i%len(points)])
				}
			})
		}
	}
}
