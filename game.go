package main

import (
	"fmt"
	"image/color"
	"log"
	"sort"
	"strings"

	"github.com/ebitenui/ebitenui"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/milk9111/unrest/ai/fsm"
	"github.com/milk9111/unrest/ai/npc"
	"github.com/milk9111/unrest/component"
	"github.com/milk9111/unrest/prefabs"
	"github.com/milk9111/unrest/system"
	"golang.design/x/clipboard"
	"golang.org/x/image/colornames"
)

const (
	baseWidth  = 1280
	baseHeight = 720

	playerSpeed   = 6.0
	commandRadius = 5.0
	logLines      = 6
)

var stateColors = map[fsm.StateID]color.Color{
	npc.StateIdle:      colornames.Lightgray,
	npc.StateWander:    colornames.Lightgreen,
	npc.StateFlee:      colornames.Gold,
	npc.StateRiot:      colornames.Red,
	npc.StateCalm:      colornames.Skyblue,
	npc.StateFormation: colornames.White,
}

var throwKeys = []struct {
	key  ebiten.Key
	kind system.ProjectileKind
}{
	{ebiten.Key1, system.ProjectileMolotov},
	{ebiten.Key2, system.ProjectileStone},
	{ebiten.Key3, system.ProjectileTeargas},
}

type Game struct {
	frames int
	debug  bool
	paused bool

	sim       *system.Sim
	watcher   *prefabs.Watcher
	clipboard bool
	ui        *ebitenui.UI

	throwKind system.ProjectileKind
	lines     []string
}

func NewGame(sim *system.Sim, watcher *prefabs.Watcher, clip bool, debug bool) *Game {
	g := &Game{
		debug:     debug,
		sim:       sim,
		watcher:   watcher,
		clipboard: clip,
		throwKind: system.ProjectileStone,
	}
	g.ui = NewPauseUI(g)

	sim.Combat.Emitter.Subscribe(func(evt component.CombatEvent) {
		if evt.Type == component.EventImpact {
			g.logf("%s landed, tension %.0f", evt.Kind, evt.Tension)
		}
	})
	sim.Missions.OnComplete = func(m system.Mission) {
		g.logf("mission complete: %s", m.Description)
	}
	if debug {
		sim.OnTransition = func(evt system.TransitionEvent) {
			g.logf("npc %d %s -> %s", evt.NPC, evt.From, evt.To)
		}
	}
	return g
}

func (g *Game) Update() error {
	g.frames++
	g.applyReloads()

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.paused = !g.paused
	}
	if g.paused {
		g.ui.Update()
		return nil
	}

	g.handleInput()
	g.sim.Step(1.0 / float64(ebiten.TPS()))
	return nil
}

func (g *Game) applyReloads() {
	if g.watcher == nil {
		return
	}
	changes, open := g.watcher.Poll()
	for _, change := range changes {
		if err := g.sim.Reload(change); err != nil {
			log.Printf("prefabs: reload %s: %v", change.Name, err)
		}
	}
	if !open {
		g.watcher = nil
	}
}

func (g *Game) handleInput() {
	var move mgl64.Vec3
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		move[2]--
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		move[2]++
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		move[0]--
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		move[0]++
	}
	if move.Len() > 0 {
		step := move.Normalize().Mul(playerSpeed / float64(ebiten.TPS()))
		next := g.sim.Player().Add(step)
		if g.sim.World.Layout.Walkable(next, 0.3) {
			g.sim.SetPlayer(next)
		}
	}

	for _, tk := range throwKeys {
		if inpututil.IsKeyJustPressed(tk.key) {
			g.throwKind = tk.kind
		}
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		g.throw()
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		g.command(npc.CommandCalmDown)
	case inpututil.IsKeyJustPressed(ebiten.KeyV):
		g.command(npc.CommandInsult)
	case inpututil.IsKeyJustPressed(ebiten.KeyF):
		g.formation()
	case inpututil.IsKeyJustPressed(ebiten.KeyG):
		g.charge()
	case inpututil.IsKeyJustPressed(ebiten.KeyX):
		g.sim.ClearPoliceFormation()
	case inpututil.IsKeyJustPressed(ebiten.KeyTab):
		g.copySnapshot()
	}
}

func (g *Game) throw() {
	target := g.cursorWorld()
	if _, err := g.sim.Throw(g.throwKind, target.Sub(g.sim.Player())); err != nil {
		log.Printf("combat: throw: %v", err)
	}
}

func (g *Game) command(cmd npc.Command) {
	n := g.sim.Command(cmd, commandRadius)
	g.logf("%s heard by %d", cmd, n)
}

func (g *Game) formation() {
	n := g.sim.OrderPoliceFormation(g.cursorWorld())
	g.logf("formation: %d officers", n)
}

func (g *Game) charge() {
	n := g.sim.OrderPoliceCharge()
	g.logf("charge: %d officers", n)
}

func (g *Game) copySnapshot() {
	snap := snapshot(g.sim.Stats())
	if !g.clipboard {
		log.Print(snap)
		return
	}
	clipboard.Write(clipboard.FmtText, []byte(snap))
	g.logf("snapshot copied")
}

func (g *Game) logf(format string, args ...any) {
	g.lines = append(g.lines, fmt.Sprintf(format, args...))
	if len(g.lines) > logLines {
		g.lines = g.lines[len(g.lines)-logLines:]
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colornames.Darkslategray)
	layout := g.sim.World.Layout

	tl := toScreen(mgl64.Vec3{-layout.HalfExtent, 0, -layout.HalfExtent}, layout)
	br := toScreen(mgl64.Vec3{layout.HalfExtent, 0, layout.HalfExtent}, layout)
	vector.FillRect(screen, tl[0], tl[1], br[0]-tl[0], br[1]-tl[1], colornames.Dimgray, false)
	for _, o := range layout.Obstacles {
		c := toScreen(o.Center, layout)
		if o.Radius > 0 {
			vector.FillCircle(screen, c[0], c[1], float32(o.Radius*scale(layout)), colornames.Steelblue, true)
			continue
		}
		w, h := float32(o.HalfX*scale(layout)), float32(o.HalfZ*scale(layout))
		vector.FillRect(screen, c[0]-w, c[1]-h, 2*w, 2*h, colornames.Saddlebrown, false)
	}

	r := float32(0.45 * scale(layout))
	g.sim.Directory.Each(func(c *npc.Controller) {
		p := toScreen(c.Agent().Position(), layout)
		fill := color.Color(colornames.Gray)
		if prof, ok := g.sim.Settings.Factions[c.Faction()]; ok && prof.Color != nil {
			fill = prof.Color
		}
		vector.FillCircle(screen, p[0], p[1], r, fill, true)
		if sc, ok := stateColors[c.State()]; ok {
			vector.StrokeCircle(screen, p[0], p[1], r+1.5, 1.5, sc, true)
		}
		if target, ok := c.FormationTarget(); ok && g.debug {
			t := toScreen(target, layout)
			vector.StrokeLine(screen, p[0], p[1], t[0], t[1], 1, colornames.White, true)
		}
	})

	for _, p := range g.sim.Combat.Projectiles() {
		s := toScreen(p.Position, layout)
		vector.FillCircle(screen, s[0], s[1], 3, projectileColor(p.Kind), true)
	}

	pl := toScreen(g.sim.Player(), layout)
	vector.FillCircle(screen, pl[0], pl[1], r*1.2, colornames.Lime, true)
	vector.StrokeCircle(screen, pl[0], pl[1], float32(g.sim.Settings.DeescalationRange*scale(layout)), 1, colornames.Lime, true)

	ebitenutil.DebugPrint(screen, g.hud())

	if g.paused {
		g.ui.Draw(screen)
	}
}

func (g *Game) hud() string {
	st := g.sim.Stats()
	var b strings.Builder
	fmt.Fprintf(&b, "FPS: %.0f  t=%.1fs  tension %.1f (%s)  throw: %s\n", ebiten.ActualFPS(), st.Time, st.Tension, st.Level, g.throwKind)
	if st.Victory {
		b.WriteString("VICTORY\n")
	} else {
		fmt.Fprintf(&b, "%s\n", st.Mission)
	}
	b.WriteString(stateLine(st.States))
	b.WriteString("\n")
	for _, l := range g.lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	return b.String()
}

func (g *Game) cursorWorld() mgl64.Vec3 {
	x, y := ebiten.CursorPosition()
	return toWorld(float64(x), float64(y), g.sim.World.Layout)
}

func (g *Game) LayoutF(outsideWidth, outsideHeight float64) (float64, float64) {
	return baseWidth, baseHeight
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	panic("shouldn't use Layout")
}

// The square fills the window height, centred horizontally.
func scale(l system.Layout) float64 {
	return baseHeight / (2 * l.HalfExtent)
}

func toScreen(p mgl64.Vec3, l system.Layout) [2]float32 {
	s := scale(l)
	return [2]float32{
		float32(baseWidth/2 + p[0]*s),
		float32(baseHeight/2 + p[2]*s),
	}
}

func toWorld(x, y float64, l system.Layout) mgl64.Vec3 {
	s := scale(l)
	return mgl64.Vec3{(x - baseWidth/2) / s, 0, (y - baseHeight/2) / s}
}

func projectileColor(k system.ProjectileKind) color.Color {
	switch k {
	case system.ProjectileMolotov:
		return colornames.Orange
	case system.ProjectileTeargas:
		return colornames.Whitesmoke
	default:
		return colornames.Tan
	}
}

func stateLine(counts map[fsm.StateID]int) string {
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s=%d", id, counts[fsm.StateID(id)]))
	}
	return strings.Join(parts, " ")
}

// snapshot is the text copied to the clipboard.
func snapshot(st system.Stats) string {
	return fmt.Sprintf("t=%.1f tension=%.1f level=%s pacified=%d %s | %s",
		st.Time, st.Tension, st.Level, st.Pacified, stateLine(st.States), st.Mission)
}
