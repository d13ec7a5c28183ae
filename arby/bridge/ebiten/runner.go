// Package ebiten wraps a bridge session as an Ebiten game. The runner polls
// keyboard and gamepad input each tick, runs one frame of emulation, and
// draws the result scaled into the window.
package ebiten

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/retro486/ArbyEmulator/arby"
	"github.com/retro486/ArbyEmulator/arby/input"
	"github.com/retro486/ArbyEmulator/arby/video"
)

// Runner implements ebiten.Game around a session.
type Runner struct {
	session *arby.Session
	frame   *video.FrameBuffer
	rgba    *image.RGBA

	offscreen *ebiten.Image
	drawOpts  ebiten.DrawImageOptions
}

// NewRunner creates a runner for the given session. The session is not
// closed by the runner; the caller owns it.
func NewRunner(session *arby.Session) *Runner {
	return &Runner{
		session: session,
		frame:   video.NewFrameBuffer(),
		rgba:    image.NewRGBA(image.Rect(0, 0, video.FramebufferWidth, video.FramebufferHeight)),
	}
}

// Update implements ebiten.Game. One emulated frame per tick; Ebiten's 60 Hz
// tick provides the wall-clock pacing.
func (r *Runner) Update() error {
	r.pollInput()
	if !r.session.Loop(r.frame.ToSlice()) {
		return ebiten.Termination
	}
	return nil
}

// Draw implements ebiten.Game, scaling the frame to fit while preserving
// the aspect ratio.
func (r *Runner) Draw(screen *ebiten.Image) {
	if r.offscreen == nil {
		r.offscreen = ebiten.NewImage(video.FramebufferWidth, video.FramebufferHeight)
	}

	buf := r.frame.ToSlice()
	for i, p := range buf {
		r.rgba.Pix[i*4+0] = uint8(p >> 16)
		r.rgba.Pix[i*4+1] = uint8(p >> 8)
		r.rgba.Pix[i*4+2] = uint8(p)
		r.rgba.Pix[i*4+3] = uint8(p >> 24)
	}
	r.offscreen.WritePixels(r.rgba.Pix)

	screenW, screenH := screen.Bounds().Dx(), screen.Bounds().Dy()
	scaleX := float64(screenW) / float64(video.FramebufferWidth)
	scaleY := float64(screenH) / float64(video.FramebufferHeight)
	scale := scaleX
	if scaleY < scaleX {
		scale = scaleY
	}
	offsetX := (float64(screenW) - float64(video.FramebufferWidth)*scale) / 2
	offsetY := (float64(screenH) - float64(video.FramebufferHeight)*scale) / 2

	r.drawOpts = ebiten.DrawImageOptions{}
	r.drawOpts.GeoM.Scale(scale, scale)
	r.drawOpts.GeoM.Translate(offsetX, offsetY)
	r.drawOpts.Filter = ebiten.FilterNearest
	screen.DrawImage(r.offscreen, &r.drawOpts)
}

// Layout implements ebiten.Game; the window size is returned so Draw
// controls scaling.
func (r *Runner) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// pollInput reads keyboard and gamepad state and forwards it to the session.
// The session's input controller is edge triggered, so pushing the full
// state every tick is fine.
func (r *Runner) pollInput() {
	up := ebiten.IsKeyPressed(ebiten.KeyArrowUp) || ebiten.IsKeyPressed(ebiten.KeyW)
	down := ebiten.IsKeyPressed(ebiten.KeyArrowDown) || ebiten.IsKeyPressed(ebiten.KeyS)
	left := ebiten.IsKeyPressed(ebiten.KeyArrowLeft) || ebiten.IsKeyPressed(ebiten.KeyA)
	right := ebiten.IsKeyPressed(ebiten.KeyArrowRight) || ebiten.IsKeyPressed(ebiten.KeyD)
	btnA := ebiten.IsKeyPressed(ebiten.KeyZ) || ebiten.IsKeyPressed(ebiten.KeyJ)
	btnB := ebiten.IsKeyPressed(ebiten.KeyX) || ebiten.IsKeyPressed(ebiten.KeyK)

	for _, id := range ebiten.AppendGamepadIDs(nil) {
		if !ebiten.IsStandardGamepadLayoutAvailable(id) {
			continue
		}
		if ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonLeftTop) {
			up = true
		}
		if ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonLeftBottom) {
			down = true
		}
		if ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonLeftLeft) {
			left = true
		}
		if ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonLeftRight) {
			right = true
		}
		if ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonRightBottom) {
			btnA = true
		}
		if ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonRightRight) {
			btnB = true
		}
	}

	r.session.ButtonEvent(input.Up, up)
	r.session.ButtonEvent(input.Down, down)
	r.session.ButtonEvent(input.Left, left)
	r.session.ButtonEvent(input.Right, right)
	r.session.ButtonEvent(input.A, btnA)
	r.session.ButtonEvent(input.B, btnB)
}
