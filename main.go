package main

import (
	"flag"
	"log"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/milk9111/unrest/prefabs"
	"github.com/milk9111/unrest/system"
	"golang.design/x/clipboard"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug mode")
	baseMonitor := flag.Bool("m", false, "use base monitor instead of primary (for multi-monitor setups)")
	count := flag.Int("count", 60, "crowd size, police not included")
	police := flag.Int("police", 6, "police squad size")
	seed := flag.Int64("seed", 1, "crowd layout seed")
	watch := flag.Bool("watch", true, "hot reload prefabs/ while running")
	flag.Parse()

	if *baseMonitor {
		ebiten.SetMonitor(ebiten.AppendMonitors(nil)[0])
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

	var watcher *prefabs.Watcher
	if *watch {
		watcher, err = prefabs.NewWatcher(prefabs.Dir, filepath.Join(prefabs.Dir, "scripts"))
		if err != nil {
			log.Printf("prefabs: hot reload disabled: %v", err)
			watcher = nil
		} else {
			defer watcher.Close()
		}
	}

	clip := clipboard.Init() == nil
	if !clip {
		log.Printf("clipboard unavailable, snapshots go to the log")
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(baseWidth, baseHeight)
	ebiten.SetWindowTitle("unrest")

	game := NewGame(sim, watcher, clip, *debug)
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
