package tracker

import (
	"github.com/gonum/matrix/mat64"

	kitlog "github.com/go-kit/kit/log"

	"github.com/trackkit/trackkit"
	"github.com/trackkit/trackkit/assign"
	"github.com/trackkit/trackkit/kalman"
	"github.com/trackkit/trackkit/tracelog"
)

// scalarPrototype builds a 1-D identity-dynamics Kalman prototype
// (F=H=[[1]], Q=[[0]], R=[[measurementNoise]]) plus a Mahalanobis
// assigner, enough to exercise the tracker's control flow without
// needing a full feature-metadata model.
func scalarPrototype(measurementNoise float64, cfg trackkit.Config) Prototype {
	f := mat64.NewDense(1, 1, []float64{1})
	h := mat64.NewDense(1, 1, []float64{1})
	q := mat64.NewDense(1, 1, []float64{0})
	r := mat64.NewDense(1, 1, []float64{measurementNoise})
	filter := kalman.New(f, h, q, r)
	return Prototype{
		Filter:   filter,
		Assigner: assign.NewHungarian(cfg.AssignmentCostScale),
		CostFn:   assign.MahalanobisCost(h, r),
		Config:   cfg,
		Logger:   tracelog.Nop(),
	}
}

func scalarInitialState(vec []float64) trackkit.FilterState {
	return trackkit.FilterState{Mean: vec, Covariance: trackkit.IdentityCovariance(1, 100.0)}
}

func testConfig() trackkit.Config {
	cfg := trackkit.DefaultConfig()
	return cfg
}

func obs(t trackkit.TimeIndex, id trackkit.EntityID, v float64) Observation {
	return Observation{Time: t, EntityID: id, Vector: []float64{v}}
}

// logFunc adapts a plain function into a kitlog.Logger for tests that
// need to assert something was actually logged.
type logFunc func(keyvals ...interface{}) error

func (f logFunc) Log(keyvals ...interface{}) error { return f(keyvals...) }

// recordingLogger appends every logged line's key/value pairs to dst.
func recordingLogger(dst *[][]interface{}) kitlog.Logger {
	return logFunc(func(keyvals ...interface{}) error {
		*dst = append(*dst, keyvals)
		return nil
	})
}
