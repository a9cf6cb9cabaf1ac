// Package detect defines the detection types produced by the inference
// engine and a gocv DNN backed implementation of the Detector interface.
package detect

import "image"

// BoxRect are the dimensions of the bounding box of a detected object
type BoxRect struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// ToRect converts the box to an image.Rectangle
func (b BoxRect) ToRect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

// Width returns the box width in pixels
func (b BoxRect) Width() int {
	return b.Right - b.Left
}

// Height returns the box height in pixels
func (b BoxRect) Height() int {
	return b.Bottom - b.Top
}

// Area returns the box area in pixels
func (b BoxRect) Area() float64 {
	return float64(b.Width()) * float64(b.Height())
}

// Detection defines the attributes of a single object detected in a frame.
// Detections are ephemeral, produced fresh every frame and discarded once
// the tracker has consumed them.
type Detection struct {
	// Box are the bounding box dimensions of the object location
	Box BoxRect
	// Class is the class id the model assigns to the object
	Class int
	// Confidence is the confidence score of the object detected, in [0,1]
	Confidence float64
}
