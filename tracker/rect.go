package tracker

// Tlwh (top-left x, top-left y, width, height) represents a 1x4 matrix
type Tlwh []float32

// Xyah (center x, center y, aspect ratio, height) represents a 1x4 matrix
type Xyah []float32

// Rect represents a bounding box in Tlwh (top-left, width, height) format
type Rect struct {
	Tlwh Tlwh
}

// NewRect creates a new Rect with given coordinates
func NewRect(x, y, width, height float32) Rect {
	return Rect{
		Tlwh: Tlwh{x, y, width, height},
	}
}

// X returns the x coordinate of the rectangle
func (r *Rect) X() float32 {
	return r.Tlwh[0]
}

// Y returns the y coordinate of the rectangle
func (r *Rect) Y() float32 {
	return r.Tlwh[1]
}

// Width returns the width of the rectangle
func (r *Rect) Width() float32 {
	return r.Tlwh[2]
}

// Height returns the height of the rectangle
func (r *Rect) Height() float32 {
	return r.Tlwh[3]
}

// TLX returns the top-left x coordinate of the rectangle
func (r *Rect) TLX() float32 {
	return r.Tlwh[0]
}

// TLY returns the top-left y coordinate of the rectangle
func (r *Rect) TLY() float32 {
	return r.Tlwh[1]
}

// BRX returns the bottom-right x coordinate of the rectangle
func (r *Rect) BRX() float32 {
	return r.Tlwh[0] + r.Tlwh[2]
}

// BRY returns the bottom-right y coordinate of the rectangle
func (r *Rect) BRY() float32 {
	return r.Tlwh[1] + r.Tlwh[3]
}

// GetXyah converts the rectangle to Xyah (center x, center y, aspect
// ratio, height) format
func (r *Rect) GetXyah() Xyah {
	return Xyah{
		r.Tlwh[0] + r.Tlwh[2]/2,
		r.Tlwh[1] + r.Tlwh[3]/2,
		r.Tlwh[2] / r.Tlwh[3],
		r.Tlwh[3],
	}
}

// CalcIoU calculates the Intersection over Union (IoU) with another
// rectangle.  Disjoint rectangles score 0, identical rectangles score 1.
func (r *Rect) CalcIoU(other Rect) float32 {

	iw := minF32(r.BRX(), other.BRX()) - maxF32(r.TLX(), other.TLX())

	if iw <= 0 {
		return 0
	}

	ih := minF32(r.BRY(), other.BRY()) - maxF32(r.TLY(), other.TLY())

	if ih <= 0 {
		return 0
	}

	intersection := iw * ih
	union := r.Tlwh[2]*r.Tlwh[3] + other.Tlwh[2]*other.Tlwh[3] - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}

// Smooth blends the rectangle with a newly observed one using exponential
// smoothing.  alpha is the weight kept on the existing rectangle, so a
// high alpha damps jitter at the cost of lag.
func (r *Rect) Smooth(observed Rect, alpha float32) Rect {
	return NewRect(
		alpha*r.Tlwh[0]+(1-alpha)*observed.Tlwh[0],
		alpha*r.Tlwh[1]+(1-alpha)*observed.Tlwh[1],
		alpha*r.Tlwh[2]+(1-alpha)*observed.Tlwh[2],
		alpha*r.Tlwh[3]+(1-alpha)*observed.Tlwh[3],
	)
}

// GenerateRectByXyah creates a Rect from Xyah (center x, center y,
// aspect ratio, height) format
func GenerateRectByXyah(xyah Xyah) Rect {
	width := xyah[2] * xyah[3]
	return NewRect(xyah[0]-width/2, xyah[1]-xyah[3]/2, width, xyah[3])
}

func minF32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxF32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
