// Command trackctl runs one tracking pass over a stored line-feature
// container: load scenario config, load observations from SQLite, run the
// selected tracker (iterative smoother, min-cost-flow, or outlier pass),
// and save the line container back to the store. Group membership is
// not written to the store.
// Shaped after the teacher's cmd/od scenario-driven main (flag + viper +
// log, no subcommands).
package main

import (
	"encoding/json"
	"flag"
	"log"
	"strings"

	"github.com/trackkit/trackkit"
	"github.com/trackkit/trackkit/assign"
	"github.com/trackkit/trackkit/feature"
	"github.com/trackkit/trackkit/geom"
	"github.com/trackkit/trackkit/kalman"
	"github.com/trackkit/trackkit/store"
	"github.com/trackkit/trackkit/tracelog"
	"github.com/trackkit/trackkit/tracker"
)

const defaultScenario = "~~unset~~"

var (
	scenario   string
	dbPath     string
	container  string
	trackMode  string
	startFrame int
	endFrame   int
	debug      bool
)

func init() {
	flag.StringVar(&scenario, "scenario", defaultScenario, "session scenario TOML file")
	flag.StringVar(&dbPath, "db", "trackkit.sqlite", "SQLite database path")
	flag.StringVar(&container, "container", "lines", "name of the stored line-feature container")
	flag.StringVar(&trackMode, "mode", "iterative", "tracker mode: iterative, mincostflow, or outlier")
	flag.IntVar(&startFrame, "start", 0, "first frame index to process")
	flag.IntVar(&endFrame, "end", -1, "last frame index to process (-1 = last available)")
	flag.BoolVar(&debug, "debug", false, "verbose debug logging")
}

func main() {
	flag.Parse()
	if scenario == defaultScenario {
		log.Fatal("no scenario provided; pass -scenario path/to/scenario.toml")
	}

	logger := tracelog.New(nil)
	if !debug {
		logger = tracelog.Nop()
	}

	cfg, err := trackkit.LoadConfig(scenario)
	if err != nil {
		log.Fatalf("[scenario] %s: %s", scenario, err)
	}

	sess := trackkit.NewSession()
	sess.Config = cfg
	sess.SetLogger(logger)

	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("[store] opening %s: %s", dbPath, err)
	}
	log.Printf("[info] opened store %s", dbPath)

	lineCodec := store.Codec[geom.Line2D]{
		Encode: func(l geom.Line2D) ([]byte, error) { return json.Marshal(l) },
		Decode: func(b []byte) (geom.Line2D, error) {
			var l geom.Line2D
			err := json.Unmarshal(b, &l)
			return l, err
		},
	}

	lines, err := store.LoadContainer(db, container, sess.Registry, "centroid_line", trackkit.KindLine, lineCodec)
	if err != nil {
		log.Fatalf("[store] loading container %q: %s", container, err)
	}
	sess.RegisterContainer(container, lines)

	times := lines.GetTimesWithData()
	if len(times) == 0 {
		log.Fatalf("[store] container %q has no data", container)
	}
	if endFrame < 0 {
		endFrame = int(times[len(times)-1])
	}
	log.Printf("[info] loaded %d frames from %q (frames %d..%d)", len(times), container, startFrame, endFrame)

	extractor := feature.CentroidExtractor{}
	frames := buildFrames(lines, extractor)

	proto := buildPrototype(sess.Config, extractor.Metadata())
	proto.Logger = sess.Log
	initialState := feature.VectorInitializer(extractor.Metadata(), 100.0, 100.0)

	sess.Log.Log("level", "info", "msg", "starting tracker pass", "mode", trackMode, "container", container)

	switch strings.ToLower(trackMode) {
	case "iterative":
		smoother := tracker.NewIterativeSmoother(proto, initialState)
		gt := tracker.GroundTruth{}
		result, err := smoother.Process(frames, sess.Groups, gt, trackkit.TimeIndex(startFrame), trackkit.TimeIndex(endFrame), progressLogger("iterative"))
		if err != nil {
			log.Fatalf("[tracker] iterative smoother: %s", err)
		}
		log.Printf("[info] iterative smoother produced %d tracks", len(result))
	case "mincostflow":
		flow := tracker.NewMinCostFlow(proto, initialState)
		gt := tracker.GroundTruth{}
		result, err := flow.Process(frames, sess.Groups, gt, progressLogger("mincostflow"))
		if err != nil {
			log.Fatalf("[tracker] min-cost-flow: %s", err)
		}
		log.Printf("[info] min-cost-flow tracker produced %d tracks", len(result))
	case "outlier":
		detector := tracker.NewOutlierDetector(proto, initialState)
		detector.Process(frames, sess.Groups, sess.Groups.AllGroupIDs(), trackkit.TimeIndex(startFrame), trackkit.TimeIndex(endFrame), progressLogger("outlier"))
		log.Printf("[info] outlier pass complete, group %q", sess.Config.OutlierGroupName)
	default:
		log.Fatalf("unknown -mode %q (want iterative, mincostflow, or outlier)", trackMode)
	}

	if err := store.SaveContainer(db, container, lines, lineCodec); err != nil {
		log.Fatalf("[store] saving container %q: %s", container, err)
	}
	sess.Log.Log("level", "info", "msg", "tracker pass complete", "mode", trackMode, "container", container)
	log.Printf("[info] done")
}

func buildFrames(lines *trackkit.TimeSeries[geom.Line2D], extractor feature.Extractor[geom.Line2D]) *tracker.Frames {
	var obs []tracker.Observation
	for _, t := range lines.GetTimesWithData() {
		for _, entry := range lines.GetAtTime(t) {
			obs = append(obs, tracker.Observation{
				Time:     t,
				EntityID: entry.EntityID,
				Vector:   extractor.FilterFeatures(entry.Data),
			})
		}
	}
	return tracker.NewFrames(obs)
}

func buildPrototype(cfg trackkit.Config, meta feature.Metadata) tracker.Prototype {
	noise := kalman.FeatureNoise{
		DT:                      cfg.DT,
		ProcessNoisePosition:    cfg.DefaultProcessNoisePosition,
		ProcessNoiseVelocity:    cfg.DefaultProcessNoiseVelocity,
		StaticProcessNoiseScale: cfg.StaticProcessNoiseScale,
		MeasurementNoise:        cfg.DefaultMeasurementNoise,
	}
	if fn, ok := cfg.FeatureNoise[meta.Name]; ok {
		noise.ProcessNoisePosition = fn.ProcessNoisePosition
		noise.ProcessNoiseVelocity = fn.ProcessNoiseVelocity
		noise.MeasurementNoise = fn.MeasurementNoise
	}
	f, h, q, r := kalman.BuildAllMatrices([]feature.Metadata{meta}, []kalman.FeatureNoise{noise})
	filter := kalman.New(f, h, q, r)

	return tracker.Prototype{
		Filter:   filter,
		Assigner: assign.NewHungarian(cfg.AssignmentCostScale),
		CostFn:   assign.MahalanobisCost(h, r),
		Config:   cfg,
	}
}

func progressLogger(label string) func(int) {
	last := -1
	return func(percent int) {
		if percent != last && percent%25 == 0 {
			log.Printf("[progress] %s %d%%", label, percent)
			last = percent
		}
	}
}
