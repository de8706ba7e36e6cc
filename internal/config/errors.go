package config

import "errors"

// ErrNoQECBenefit is returned when P >= P_th: the device error rate is
// already below the threshold concatenated coding improves on.
var ErrNoQECBenefit = errors.New("config: device error exponent gives no benefit from QEC")

// ErrInfeasibleCodeDistance is returned when the computed or configured
// code-distance floor is non-positive.
var ErrInfeasibleCodeDistance = errors.New("config: infeasible code distance")
