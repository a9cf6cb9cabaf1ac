// Package render draws detection, tracking and counting overlays onto
// video frames.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"doorcount/counter"
	"doorcount/tracker"
)

// boxLabel holds the pre-calculated details for a track label so labels
// are painted last and sit on top of every other overlay
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// Overlay renders the annotation layers onto a frame.  It holds no
// per-frame state and is safe to reuse across frames.
type Overlay struct {
	font          Font
	lineThickness int
	// titleFace is an optional TTF face used for the banner title
	titleFace font.Face
	title     string
}

// NewOverlay returns an Overlay using the given label font
func NewOverlay(font Font) *Overlay {
	return &Overlay{
		font:          font,
		lineThickness: 1,
	}
}

// SetTitle sets a banner title rendered with a TTF face loaded via
// LoadFace
func (o *Overlay) SetTitle(title string, face font.Face) {
	o.title = title
	o.titleFace = face
}

// Zones paints the counting zones as translucent fills with the doorway
// line on top.  The center band renders green, the exit zones red.
func (o *Overlay) Zones(img *gocv.Mat, z *counter.Zones) {

	overlay := img.Clone()
	defer overlay.Close()

	fillZone(&overlay, z.Center(), Green)
	fillZone(&overlay, z.Left(), Red)
	fillZone(&overlay, z.Right(), Red)

	gocv.AddWeighted(overlay, 0.3, *img, 0.7, 0, img)

	gocv.Line(img, z.LineStart, z.LineEnd, Green, 2)
}

// fillZone fills a single polygon on the overlay Mat
func fillZone(img *gocv.Mat, poly []image.Point, clr color.RGBA) {

	if len(poly) < 3 {
		return
	}

	pts := gocv.NewPointsVectorFromPoints([][]image.Point{poly})
	defer pts.Close()

	gocv.FillPoly(img, pts, clr)
}

// MotionRegions outlines the raw foreground regions so motion gating is
// visible on the stream
func (o *Overlay) MotionRegions(img *gocv.Mat, regions []image.Rectangle) {
	for _, region := range regions {
		gocv.Rectangle(img, region, Yellow, 1)
	}
}

// TrackBoxes renders the bounding box, identity label and movement trail
// for every live track
func (o *Overlay) TrackBoxes(img *gocv.Mat, tracks []*tracker.Track, trail *tracker.Trail) {

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0, len(tracks))

	for _, track := range tracks {

		boxLeft := int(track.Rect().TLX())
		boxTop := int(track.Rect().TLY())
		boxRight := int(track.Rect().BRX())
		boxBottom := int(track.Rect().BRY())

		// Get the color for this track
		colorIndex := track.ID() % len(trackColors)
		useClr := trackColors[colorIndex]

		// draw rectangle around tracked person
		rect := image.Rect(boxLeft, boxTop, boxRight, boxBottom)
		gocv.Rectangle(img, rect, useClr, o.lineThickness)

		// mark the reference point used for zone classification
		gocv.Circle(img, track.RefPoint(), 3, useClr, -1)

		if trail != nil {
			o.drawTrail(img, trail.GetPoints(track.ID()))
		}

		// create text for label
		text := fmt.Sprintf("person %d %.2f", track.ID(), track.Confidence())
		textSize := gocv.GetTextSize(text, o.font.Face, o.font.Scale, o.font.Thickness)

		// Calculate the alignment of text label
		var centerX int

		switch o.font.Alignment {
		case Center:
			centerX = (boxLeft + boxRight) / 2

		case Right:
			centerX = boxRight - (textSize.X / 2) - o.font.RightPad + (o.lineThickness / 2)

		case Left:
			fallthrough
		default:
			centerX = boxLeft + (textSize.X / 2) + o.font.LeftPad - (o.lineThickness / 2)
		}

		// Adjust the label position so the text is centered horizontally
		labelPosition := image.Pt(centerX-textSize.X/2, boxTop-o.font.BottomPad)

		// create box for placing text on
		bRect := image.Rect(centerX-textSize.X/2-o.font.LeftPad,
			boxTop-textSize.Y-o.font.TopPad-o.font.BottomPad,
			centerX+textSize.X/2+o.font.RightPad, boxTop)

		boxLabels = append(boxLabels, boxLabel{
			rect:    bRect,
			clr:     useClr,
			text:    text,
			textPos: labelPosition,
		})
	}

	// draw all precalculated box labels so they are the top most layer on
	// the image and don't get overlapped by trails or zone fills
	for _, box := range boxLabels {
		// draw box text gets written on
		gocv.Rectangle(img, box.rect, box.clr, -1)

		// Draw the label over box
		gocv.PutTextWithParams(img, box.text, box.textPos,
			o.font.Face, o.font.Scale, o.font.Color, o.font.Thickness,
			o.font.LineType, false)
	}
}

// drawTrail draws the line segments of a track's movement history
func (o *Overlay) drawTrail(img *gocv.Mat, points []tracker.Point) {

	if len(points) < 3 {
		return
	}

	for i := 1; i < len(points); i++ {
		gocv.Line(img,
			image.Pt(points[i-1].X, points[i-1].Y),
			image.Pt(points[i].X, points[i].Y),
			Yellow, 1,
		)
	}
}

// Banner blanks the top of the frame and writes the running counts and
// frame statistics over it
func (o *Overlay) Banner(img *gocv.Mat, counts counter.Counts, fps float64, frameNum int) {

	// blank out background video
	rect := image.Rect(0, 0, img.Cols(), 36)
	gocv.Rectangle(img, rect, Black, -1)

	gocv.PutTextWithParams(img, fmt.Sprintf("IN: %d", counts.In),
		image.Pt(4, 14), gocv.FontHersheySimplex, 0.5, Green, 1,
		gocv.LineAA, false)

	gocv.PutTextWithParams(img, fmt.Sprintf("OUT: %d", counts.Out()),
		image.Pt(4, 30), gocv.FontHersheySimplex, 0.5, Red, 1,
		gocv.LineAA, false)

	gocv.PutTextWithParams(img,
		fmt.Sprintf("Frame: %d, FPS: %.2f", frameNum, fps),
		image.Pt(90, 14), gocv.FontHersheySimplex, 0.5, Pink, 1,
		gocv.LineAA, false)

	if o.titleFace != nil && o.title != "" {
		o.putTitleText(img)
	}
}

// putTitleText renders the banner title with the TTF face.  The text is
// drawn onto an RGBA image then blended over the frame.
func (o *Overlay) putTitleText(img *gocv.Mat) {

	rgba := image.NewRGBA(image.Rect(0, 0, img.Cols(), img.Rows()))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.RGBA{0, 0, 0, 0}),
		image.Point{}, draw.Src)

	dr := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(White),
		Face: o.titleFace,
	}

	// right align inside the banner
	width := dr.MeasureString(o.title).Ceil()
	dr.Dot = fixed.Point26_6{
		X: fixed.Int26_6((img.Cols() - width - 8) * 64),
		Y: fixed.Int26_6(24 * 64),
	}
	dr.DrawString(o.title)

	imgRGBA, err := gocv.NewMatFromBytes(rgba.Bounds().Dy(), rgba.Bounds().Dx(),
		gocv.MatTypeCV8UC4, rgba.Pix)

	if imgRGBA.Empty() || err != nil {
		return
	}

	defer imgRGBA.Close()

	gocv.CvtColor(imgRGBA, &imgRGBA, gocv.ColorRGBAToBGR)
	gocv.AddWeighted(*img, 1.0, imgRGBA, 1.0, 0, img)
}
