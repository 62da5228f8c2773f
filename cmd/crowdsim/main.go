// Command crowdsim runs the crowd headless and logs how it behaves.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/unrest/ai/fsm"
	"github.com/milk9111/unrest/ai/npc"
	"github.com/milk9111/unrest/system"
)

func main() {
	seconds := flag.Float64("seconds", 120, "simulated seconds")
	fps := flag.Int("fps", 60, "frames per simulated second")
	count := flag.Int("count", 60, "crowd size, police not included")
	police := flag.Int("police", 6, "police squad size")
	seed := flag.Int64("seed", 1, "crowd layout seed")
	throwEvery := flag.Float64("throw", 15, "seconds between molotovs thrown into the crowd, 0 disables")
	calmEvery := flag.Float64("calm", 5, "seconds between calm-down shouts, 0 disables")
	report := flag.Float64("report", 10, "seconds between reports")
	formation := flag.Bool("formation", true, "line the police up in front of the crowd at start")
	flag.Parse()

	if *fps <= 0 || *seconds <= 0 {
		log.Fatal("crowdsim: -fps and -seconds must be positive")
	}

	settings, err := system.LoadSettings()
	if err != nil {
		log.Fatal(err)
	}
	crowd := system.DefaultCrowdConfig()
	crowd.Count = *count
	crowd.PoliceSquad = *police
	crowd.Seed = *seed

	sim, err := system.NewSim(settings, crowd)
	if err != nil {
		log.Fatal(err)
	}
	if *formation {
		sim.OrderPoliceFormation(crowd.Center.Add(mgl64.Vec3{0, 0, crowd.Radius + 3}))
	}

	dt := 1 / float64(*fps)
	frames := int(math.Ceil(*seconds * float64(*fps)))
	nextThrow, nextCalm, nextReport := *throwEvery, *calmEvery, *report
	for i := 0; i < frames; i++ {
		sim.Step(dt)
		t := sim.Time()

		// the player walks a slow circle around the crowd
		angle := t * 0.05
		sim.SetPlayer(mgl64.Vec3{math.Sin(angle) * 15, 0, math.Cos(angle) * 15})

		if *throwEvery > 0 && t >= nextThrow {
			nextThrow += *throwEvery
			if _, err := sim.Throw(system.ProjectileMolotov, crowd.Center.Sub(sim.Player())); err != nil {
				log.Printf("crowdsim: throw: %v", err)
			}
		}
		if *calmEvery > 0 && t >= nextCalm {
			nextCalm += *calmEvery
			sim.Command(npc.CommandCalmDown, 6)
		}
		if *report > 0 && t >= nextReport {
			nextReport += *report
			log.Print(format(sim.Stats()))
		}
		if sim.Missions.Victory() {
			log.Printf("crowdsim: all missions complete at t=%.1fs", t)
			break
		}
	}

	log.Printf("crowdsim: final %s", format(sim.Stats()))
}

func format(st system.Stats) string {
	ids := make([]string, 0, len(st.States))
	for id := range st.States {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s=%d", id, st.States[fsm.StateID(id)]))
	}
	return fmt.Sprintf("t=%.1fs tension=%.1f (%s) pacified=%d [%s] %s",
		st.Time, st.Tension, st.Level, st.Pacified, strings.Join(parts, " "), st.Mission)
}
