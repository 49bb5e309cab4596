// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command krylov solves a sparse linear system with a preconditioned Krylov
// method and reports the convergence.
//
// The matrix is read from a Matrix Market file (-mtx) or generated as the
// convection-diffusion operator on a square grid (-grid). The right-hand side
// is chosen so that the solution is the vector of ones.
//
// Usage:
//  krylov -grid 50 -px 40 -method bicgstab -precond ilutp -plot conv.png
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/vladimir-ch/krylov"
	"github.com/vladimir-ch/krylov/precond"
	"github.com/vladimir-ch/krylov/sparse"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("krylov: ")

	var (
		mtx     = flag.String("mtx", "", "read the matrix from a Matrix Market `file`")
		grid    = flag.Int("grid", 32, "generate the convection-diffusion matrix on an `n`×n grid")
		px      = flag.Float64("px", 10, "convection coefficient in x")
		py      = flag.Float64("py", 10, "convection coefficient in y")
		method  = flag.String("method", "bicgstab", "method: cg, bicg, bicgstab, gpbicg, mlbicgstab, gmres or composite")
		pc      = flag.String("precond", "none", "preconditioner: none, diagonal, ilutp or milu0")
		tol     = flag.Float64("tol", krylov.DefaultTolerance, "relative residual tolerance")
		maxIter = flag.Int("maxiter", krylov.DefaultMaxIterations, "iteration limit")
		k       = flag.Int("k", krylov.DefaultNumStartingVectors, "number of starting vectors of mlbicgstab")
		restart = flag.Int("restart", krylov.DefaultGMRESRestart, "restart length of gmres")
		out     = flag.String("plot", "", "save the residual history to a PNG `file`")
	)
	flag.Parse()

	a, err := loadMatrix(*mtx, *grid, *px, *py)
	if err != nil {
		log.Fatal(err)
	}
	n, c := a.Dims()
	if n != c {
		log.Fatalf("matrix is %d×%d, not square", n, c)
	}

	want := make([]float64, n)
	for i := range want {
		want[i] = 1
	}
	b := make([]float64, n)
	a.MulVecTo(b, false, want)

	h := &krylov.History{}
	crit := append([]krylov.StopCriterion{h}, krylov.DefaultCriteria(krylov.Options{
		Tolerance:     *tol,
		MaxIterations: *maxIter,
	})...)
	settings := krylov.Settings{
		Iterator: krylov.NewIteratorWith(crit...),
	}

	start := time.Now()
	var res krylov.Result
	if *method == "composite" {
		comp := &krylov.Composite{
			Steps: []krylov.Step{
				{Method: &krylov.BiCGStab{}, Preconditioner: newPreconditioner(*pc)},
				{Method: &krylov.MLBiCGStab{NumStartingVectors: *k}, Preconditioner: newPreconditioner(*pc)},
				{Method: &krylov.GMRES{Restart: *restart}, Preconditioner: precond.NewILUTP()},
			},
			Logger: log.Default(),
		}
		res, err = comp.Solve(a, b, settings)
	} else {
		settings.Preconditioner = newPreconditioner(*pc)
		res, err = krylov.LinearSolve(a, b, newMethod(*method, *k, *restart), settings)
	}
	if err != nil {
		log.Fatal(err)
	}
	runtime := time.Since(start)

	ax := make([]float64, n)
	a.MulVecTo(ax, false, res.X)
	floats.Sub(ax, b)
	fmt.Printf("dimension:         %d (%d nonzeros)\n", n, a.NNZ())
	fmt.Printf("status:            %v\n", res.Status)
	fmt.Printf("iterations:        %d\n", res.Stats.Iterations)
	fmt.Printf("mat-vecs:          %d\n", res.Stats.MatVec)
	fmt.Printf("preconditioner:    %d\n", res.Stats.PSolve)
	fmt.Printf("relative residual: %.3e\n", floats.Norm(ax, 2)/floats.Norm(b, 2))
	fmt.Printf("error:             %.3e\n", floats.Distance(res.X, want, math.Inf(1)))
	fmt.Printf("runtime:           %v\n", runtime)

	if *out != "" {
		if err := plotHistory(*out, *method, h.Norms); err != nil {
			log.Fatal(err)
		}
	}
}

func loadMatrix(path string, grid int, px, py float64) (*sparse.CSR, error) {
	if path == "" {
		if grid <= 0 {
			return nil, fmt.Errorf("invalid grid size %d", grid)
		}
		return sparse.ConvectionDiffusion(grid, px, py), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := sparse.ReadMatrixMarket(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m.ToCSR(), nil
}

func newMethod(name string, k, restart int) krylov.Method {
	switch name {
	case "cg":
		return &krylov.CG{}
	case "bicg":
		return &krylov.BiCG{}
	case "bicgstab":
		return &krylov.BiCGStab{}
	case "gpbicg":
		return &krylov.GPBiCG{}
	case "mlbicgstab":
		return &krylov.MLBiCGStab{NumStartingVectors: k}
	case "gmres":
		return &krylov.GMRES{Restart: restart}
	}
	log.Fatalf("unknown method %q", name)
	return nil
}

func newPreconditioner(name string) krylov.Preconditioner {
	switch name {
	case "none":
		return nil
	case "diagonal":
		return &precond.Diagonal{}
	case "ilutp":
		return precond.NewILUTP()
	case "milu0":
		return precond.NewMILU0()
	}
	log.Fatalf("unknown preconditioner %q", name)
	return nil
}

// plotHistory saves the residual norms on a logarithmic scale.
func plotHistory(path, title string, norms []float64) error {
	pts := make(plotter.XYs, 0, len(norms))
	for i, r := range norms {
		// Zero and missing norms have no place on a log scale.
		if r > 0 && !math.IsNaN(r) {
			pts = append(pts, plotter.XY{X: float64(i), Y: r})
		}
	}
	if len(pts) == 0 {
		return fmt.Errorf("no residual history to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "residual norm"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	p.Add(line)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
