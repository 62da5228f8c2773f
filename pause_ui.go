package main

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/unrest/ai/npc"
	"golang.org/x/image/font/basicfont"

	"github.com/ebitenui/ebitenui"
	imageui "github.com/ebitenui/ebitenui/image"
	"github.com/ebitenui/ebitenui/widget"
	ebtext "github.com/hajimehoshi/ebiten/v2/text/v2"
)

// NewPauseUI builds the command menu shown while paused. Every button
// acts on the simulation and resumes it.
func NewPauseUI(g *Game) *ebitenui.UI {
	panelImg := imageui.NewNineSliceColor(color.NRGBA{R: 0x00, G: 0x00, B: 0x00, A: 200})
	btnImg := imageui.NewNineSliceColor(color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 255})
	hoverImg := imageui.NewNineSliceColor(color.NRGBA{R: 0x55, G: 0x55, B: 0x55, A: 255})

	goFace := ebtext.NewGoXFace(basicfont.Face7x13)
	var face ebtext.Face = goFace

	white := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	btnTextColor := &widget.ButtonTextColor{Idle: white}
	center := widget.WidgetOpts.LayoutData(widget.RowLayoutData{Position: widget.RowLayoutPositionCenter})

	button := func(label string, onClick func()) *widget.Button {
		return widget.NewButton(
			widget.ButtonOpts.Image(&widget.ButtonImage{Idle: btnImg, Hover: hoverImg, Pressed: btnImg}),
			widget.ButtonOpts.Text(label, &face, btnTextColor),
			widget.ButtonOpts.WidgetOpts(center),
			widget.ButtonOpts.ClickedHandler(func(args *widget.ButtonClickedEventArgs) {
				onClick()
				g.paused = false
			}),
		)
	}

	title := widget.NewText(
		widget.TextOpts.Text("Commands", &face, white),
		widget.TextOpts.WidgetOpts(center),
	)

	panel := widget.NewContainer(
		widget.ContainerOpts.BackgroundImage(panelImg),
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionVertical),
			widget.RowLayoutOpts.Spacing(8),
			widget.RowLayoutOpts.Padding(&widget.Insets{Top: 20, Bottom: 20, Left: 30, Right: 30}),
		)),
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.MinSize(baseWidth/3, baseHeight/2),
			widget.WidgetOpts.LayoutData(widget.AnchorLayoutData{HorizontalPosition: widget.AnchorLayoutPositionCenter, VerticalPosition: widget.AnchorLayoutPositionCenter}),
		),
	)
	panel.AddChild(title)
	panel.AddChild(button("Resume", func() {}))
	panel.AddChild(button("Calm down (nearby)", func() { g.command(npc.CommandCalmDown) }))
	panel.AddChild(button("Insult (nearby)", func() { g.command(npc.CommandInsult) }))
	panel.AddChild(button("Police: form line ahead", func() {
		n := g.sim.OrderPoliceFormation(g.sim.Player().Add(mgl64.Vec3{0, 0, -8}))
		g.logf("formation: %d officers", n)
	}))
	panel.AddChild(button("Police: charge", g.charge))
	panel.AddChild(button("Police: stand down", g.sim.ClearPoliceFormation))
	for _, tk := range throwKeys {
		kind := tk.kind
		panel.AddChild(button("Throw "+string(kind), func() { g.throwKind = kind }))
	}
	panel.AddChild(button("Copy snapshot", g.copySnapshot))
	panel.AddChild(button("Reset tension", func() {
		g.sim.Combat.Deescalate(g.sim.Tension.Value())
		g.logf("tension reset")
	}))

	root := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewAnchorLayout()),
	)
	root.AddChild(panel)

	return &ebitenui.UI{Container: root}
}
