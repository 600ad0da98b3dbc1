package functions

import (
	"math"
	"testing"
)

func TestCatalogLookup(t *testing.T) {
	for _, name := range []string{"sphere", "ellipsoid", "rosenbrock"} {
		f, ok := Lookup(name)
		if !ok {
			t.Fatalf("function %q missing from catalog", name)
		}
		if f.Name != name {
			t.Errorf("got name %q, want %q", f.Name, name)
		}
	}
	if _, ok := Lookup("nope"); ok {
		t.Error("lookup of unknown function succeeded")
	}
}

func TestGradientsMatchFiniteDifferences(t *testing.T) {
	points := [][]float64{
		{0.3, -1.2},
		{1.0, 1.0},
		{-0.5, 2.5},
	}
	const h = 1e-6

	for _, name := range Names() {
		f, _ := Lookup(name)
		t.Run(name, func(t *testing.T) {
			for _, x := range points {
				g, err := f.Gradient(x)
				if err != nil {
					t.Fatal(err)
				}
				for i := range x {
					xp := append([]float64(nil), x...)
					xm := append([]float64(nil), x...)
					xp[i] += h
					xm[i] -= h
					fp, _ := f.Evaluate(xp)
					fm, _ := f.Evaluate(xm)
					want := (fp - fm) / (2 * h)
					if math.Abs(g[i]-want) > 1e-3*(1+math.Abs(want)) {
						t.Errorf("%s grad[%d] at %v: got %v, want ~%v", name, i, x, g[i], want)
					}
				}
			}
		})
	}
}

func TestMinima(t *testing.T) {
	if v, _ := Sphere.Evaluate([]float64{0, 0, 0}); v != 0 {
		t.Errorf("sphere minimum: got %v, want 0", v)
	}
	if v, _ := Rosenbrock.Evaluate([]float64{1, 1}); v != 0 {
		t.Errorf("rosenbrock minimum: got %v, want 0", v)
	}
}
