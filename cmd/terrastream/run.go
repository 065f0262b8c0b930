package main

import (
	"fmt"
	"log"
	"math"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/urfave/cli/v2"
	"github.com/xlab/closer"

	"terrastream/internal/config"
	"terrastream/internal/lod"
	"terrastream/internal/meshgen"
	"terrastream/internal/profiling"
	"terrastream/internal/streaming"
	"terrastream/internal/texcache"
	"terrastream/internal/texgen"
	"terrastream/internal/world"
)

// frameSet adapts a provider refresh + partition set pair per regime.
type frameSet interface {
	streaming.PartitionSet
	refresh(camera mgl64.Vec3)
}

type flatSet struct{ *world.GridProvider }

func (f flatSet) refresh(camera mgl64.Vec3) { f.Refresh(camera, nil) }

type sphereSet struct{ *world.SphereProvider }

func (s sphereSet) refresh(camera mgl64.Vec3) { s.Refresh(camera) }

func run(c *cli.Context) error {
	settings := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		settings, err = config.Load(path)
		if err != nil {
			return err
		}
	}

	mode := c.String("mode")
	if mode != "flat" && mode != "sphere" {
		return fmt.Errorf("unknown mode %q", mode)
	}

	var win *demoWindow
	var uploader texgen.Uploader = texgen.CPUUploader{}
	if c.Bool("window") {
		var err error
		win, err = openWindow()
		if err != nil {
			return err
		}
		uploader = win.uploader()
	}

	planet := world.PlanetGeometry{
		Radius:        settings.Planet.Radius,
		Origin:        mgl64.Vec3{settings.Planet.Origin[0], settings.Planet.Origin[1], settings.Planet.Origin[2]},
		ChunksPerFace: settings.Planet.ChunksPerFace,
	}

	cache := texcache.NewCache(settings.CacheBudgetBytes)
	producer := texgen.NewProducer(cache, uploader, settings.TextureSize, settings.TextureLODs, settings.Seed)
	builder := meshgen.NewBuilder()
	selector := lod.NewSelector(settings.ChunkSize, planet)

	var classifier lod.Classifier
	var set frameSet
	if mode == "sphere" {
		classifier = lod.AltitudeClassifier{Planet: planet}
		set = sphereSet{world.NewSphereProvider(planet, planet.Radius*3, settings.HeightRes, settings.Seed)}
	} else {
		set = flatSet{world.NewGridProvider(settings.ChunkSize, settings.ViewDistance, settings.HeightRes, settings.Seed)}
	}

	mgr := streaming.NewManager(selector, producer, cache, builder, classifier, streaming.Options{
		FrameBudget:        time.Duration(settings.FrameBudgetMillis) * time.Millisecond,
		MaxLoadsPerFrame:   settings.MaxLoadsPerFrame,
		MaxUnloadsPerFrame: settings.MaxUnloadsPerFrame,
		LoadQueueCap:       settings.LoadQueueCap,
		StagingTTL:         time.Duration(settings.StagingTTLSeconds * float64(time.Second)),
		SweepInterval:      time.Duration(settings.SweepIntervalSeconds * float64(time.Second)),
		Env:                world.EnvState{SeaLevel: settings.SeaLevel},
	})

	var stopped atomic.Bool
	closer.Bind(func() {
		stopped.Store(true)
		mgr.CleanupAll()
		producer.Close()
		if win != nil {
			win.close()
		}
	})

	fps := c.Float64("fps")
	if fps <= 0 {
		fps = 60
	}
	dt := 1.0 / fps
	frames := c.Int("frames")
	frameDur := time.Duration(float64(time.Second) / fps)

	log.Printf("streaming %s world: chunk %g, view %g, cache %d MB",
		mode, settings.ChunkSize, settings.ViewDistance, settings.CacheBudgetBytes/(1024*1024))

	for frame := 0; frames == 0 || frame < frames; frame++ {
		if stopped.Load() || (win != nil && win.shouldClose()) {
			break
		}
		frameStart := time.Now()
		profiling.ResetFrame()

		t := float64(frame) * dt
		camera := cameraAt(mode, t, settings, planet)
		set.refresh(camera)
		mgr.Update(camera, set, dt)

		if win != nil {
			win.present()
		}

		if frame%120 == 0 {
			st := mgr.Stats()
			log.Printf("frame %d: %d resident, %d staged, %d+%d pending, cache %d MB, top: %s",
				frame, st.Residents, st.Staged, st.PendingLoads, st.PendingUnloads,
				cache.SizeBytes()/(1024*1024), profiling.TopN(3))
		}

		if rem := frameDur - time.Since(frameStart); rem > 0 {
			time.Sleep(rem)
		}
	}

	closer.Close()
	return nil
}

// cameraAt returns the synthetic camera position at time t. The flat path
// flies a slow sine sweep; the sphere path descends from orbit toward the
// surface while circling, crossing every altitude zone.
func cameraAt(mode string, t float64, s config.Settings, planet world.PlanetGeometry) mgl64.Vec3 {
	if mode == "sphere" {
		alt := planet.Radius * (1.2*math.Exp(-t/60) + 0.001)
		angle := t * 0.05
		r := planet.Radius + alt
		return planet.Origin.Add(mgl64.Vec3{
			r * math.Cos(angle),
			r * 0.2 * math.Sin(t*0.03),
			r * math.Sin(angle),
		})
	}
	speed := s.ChunkSize * 1.5
	return mgl64.Vec3{
		t * speed,
		s.ChunkSize,
		math.Sin(t*0.2) * s.ViewDistance * 0.25,
	}
}
