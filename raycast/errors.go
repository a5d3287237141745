package raycast

import "errors"

var (
	// ErrScanMismatch is returned when a scan has a different number of points and ranges
	ErrScanMismatch = errors.New("scan point count does not match range count")

	// ErrMissingMap is returned when the model has no occupancy map to cast against
	ErrMissingMap = errors.New("occupancy map is not set")

	// ErrHitNotOccupied signals a broken map: a ray cast reported a hit on a
	// cell the map itself does not consider occupied
	ErrHitNotOccupied = errors.New("ray cast hit a cell that is not occupied")

	// ErrNonPositiveLikelihood is returned when a beam evaluates to p <= 0 or a
	// non-finite value, which only happens with invalid noise parameters
	ErrNonPositiveLikelihood = errors.New("beam likelihood is not strictly positive")

	// ErrInvalidMaxRange is returned for a sensor max range that is not strictly positive
	ErrInvalidMaxRange = errors.New("max range must be > 0")
)
