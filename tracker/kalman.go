package tracker

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Mean represents the 1x8 state vector (x, y, aspect, height plus their
// velocities) using a slice of float32
type Mean []float32

// Covariance represents the 8x8 state covariance matrix
type Covariance struct {
	*mat.Dense
}

// ProjectedMean represents the 1x4 state mean projected to measurement
// space
type ProjectedMean []float32

// ProjectedCov represents the 4x4 projected covariance matrix
type ProjectedCov struct {
	*mat.SymDense
}

// KalmanFilter is a constant-velocity filter over a bounding box in Xyah
// form.  It is used to coast a track through frames where no detection
// was matched so the box keeps IoU contact with the person's true
// position during short occlusions.
type KalmanFilter struct {
	stdWeightPosition float32
	stdWeightVelocity float32
	motionMat         *mat.Dense
	updateMat         *mat.Dense
}

// NewKalmanFilter initializes and returns a new KalmanFilter
func NewKalmanFilter(stdWeightPosition, stdWeightVelocity float32) *KalmanFilter {

	ndim := 4
	dt := float32(1.0)

	// constant velocity motion model
	motionMat := mat.NewDense(8, 8, nil)

	for i := 0; i < 8; i++ {
		motionMat.Set(i, i, 1.0)
	}

	for i := 0; i < ndim; i++ {
		motionMat.Set(i, ndim+i, float64(dt))
	}

	// measurement picks the positional half of the state
	updateMat := mat.NewDense(4, 8, nil)

	for i := 0; i < 4; i++ {
		updateMat.Set(i, i, 1.0)
	}

	return &KalmanFilter{
		stdWeightPosition: stdWeightPosition,
		stdWeightVelocity: stdWeightVelocity,
		motionMat:         motionMat,
		updateMat:         updateMat,
	}
}

// Initiate initializes the state mean and covariance from the first
// observed box
func (kf *KalmanFilter) Initiate(mean Mean, covariance *Covariance, measurement Xyah) {

	copy(mean[:4], measurement[:4])

	for i := 4; i < 8; i++ {
		mean[i] = 0.0
	}

	std := make(Mean, 8)
	std[0] = 2 * kf.stdWeightPosition * measurement[3]
	std[1] = 2 * kf.stdWeightPosition * measurement[3]
	std[2] = 1e-2
	std[3] = 2 * kf.stdWeightPosition * measurement[3]
	std[4] = 10 * kf.stdWeightVelocity * measurement[3]
	std[5] = 10 * kf.stdWeightVelocity * measurement[3]
	std[6] = 1e-5
	std[7] = 10 * kf.stdWeightVelocity * measurement[3]

	covariance.Zero()

	for i := 0; i < 8; i++ {
		covariance.Set(i, i, float64(std[i]*std[i]))
	}
}

// Predict advances the state mean and covariance one frame under the
// constant velocity model
func (kf *KalmanFilter) Predict(mean Mean, covariance *Covariance) {

	std := make(Mean, 8)
	std[0] = kf.stdWeightPosition * mean[3]
	std[1] = kf.stdWeightPosition * mean[3]
	std[2] = 1e-2
	std[3] = kf.stdWeightPosition * mean[3]
	std[4] = kf.stdWeightVelocity * mean[3]
	std[5] = kf.stdWeightVelocity * mean[3]
	std[6] = 1e-5
	std[7] = kf.stdWeightVelocity * mean[3]

	motionCov := mat.NewDense(8, 8, nil)

	for i := 0; i < 8; i++ {
		motionCov.Set(i, i, float64(std[i]*std[i]))
	}

	meanMat := mat.NewDense(8, 1, nil)

	for i := 0; i < 8; i++ {
		meanMat.Set(i, 0, float64(mean[i]))
	}

	meanMat.Mul(kf.motionMat, meanMat)

	for i := 0; i < 8; i++ {
		mean[i] = float32(meanMat.At(i, 0))
	}

	cov := covariance.Dense
	cov.Mul(kf.motionMat, cov)
	cov.Mul(cov, kf.motionMat.T())
	cov.Add(cov, motionCov)
}

// Update corrects the state mean and covariance with a matched
// measurement
func (kf *KalmanFilter) Update(mean Mean, covariance *Covariance, measurement Xyah) error {

	projectedMean, projectedCov := kf.project(mean, covariance)

	chol := mat.Cholesky{}

	if ok := chol.Factorize(projectedCov); !ok {
		return errors.New("failed to factorize projected covariance")
	}

	B := mat.NewDense(8, 4, nil)
	B.Mul(covariance.Dense, kf.updateMat.T())

	var kalmanGain mat.Dense

	if err := chol.SolveTo(&kalmanGain, B.T()); err != nil {
		return fmt.Errorf("failed to compute kalman gain: %w", err)
	}

	innovation := make([]float64, 4)

	for i := 0; i < 4; i++ {
		innovation[i] = float64(measurement[i] - projectedMean[i])
	}

	innovationVec := mat.NewVecDense(4, innovation)
	tmp := mat.NewVecDense(8, nil)
	tmp.MulVec(kalmanGain.T(), innovationVec)

	for i := 0; i < 8; i++ {
		mean[i] += float32(tmp.AtVec(i))
	}

	temp := mat.NewDense(8, 4, nil)
	temp.Mul(kalmanGain.T(), projectedCov)

	temp2 := mat.NewDense(8, 8, nil)
	temp2.Mul(temp, &kalmanGain)

	newCov := mat.NewDense(8, 8, nil)
	newCov.Sub(covariance.Dense, temp2)

	covariance.Dense = newCov

	return nil
}

// project maps the state mean and covariance to measurement space
func (kf *KalmanFilter) project(mean Mean, covariance *Covariance) (ProjectedMean, *ProjectedCov) {

	std := make([]float32, 4)
	std[0] = kf.stdWeightPosition * mean[3]
	std[1] = kf.stdWeightPosition * mean[3]
	std[2] = 1e-1
	std[3] = kf.stdWeightPosition * mean[3]

	innovationCov := mat.NewSymDense(4, nil)

	for i := 0; i < 4; i++ {
		innovationCov.SetSym(i, i, float64(std[i]*std[i]))
	}

	meanData := make([]float64, 8)

	for i, v := range mean {
		meanData[i] = float64(v)
	}

	projectedMeanVec := mat.NewVecDense(4, nil)
	projectedMeanVec.MulVec(kf.updateMat, mat.NewVecDense(8, meanData))

	temp := mat.NewDense(4, 8, nil)
	temp.Mul(kf.updateMat, covariance.Dense)
	temp2 := mat.NewDense(4, 4, nil)
	temp2.Mul(temp, kf.updateMat.T())

	projectedCov := mat.NewSymDense(4, nil)

	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			projectedCov.SetSym(i, j, temp2.At(i, j))
		}
	}

	projectedCov.AddSym(projectedCov, innovationCov)

	projectedMean := make(ProjectedMean, 4)

	for i := 0; i < 4; i++ {
		projectedMean[i] = float32(projectedMeanVec.AtVec(i))
	}

	return projectedMean, &ProjectedCov{projectedCov}
}
