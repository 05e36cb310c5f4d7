package cluster

import "errors"

var (
	// ErrInsufficientData is returned when fewer than two documents are supplied.
	ErrInsufficientData = errors.New("cluster: at least 2 documents are required")

	// ErrNoValidThreshold is returned when every swept threshold collapses the
	// batch into one cluster or leaves every document on its own.
	ErrNoValidThreshold = errors.New("cluster: no threshold in range produced a valid labeling")

	// ErrDimensionMismatch is returned for ragged vectors or when the vector
	// count differs from the document count.
	ErrDimensionMismatch = errors.New("cluster: dimension mismatch")

	// ErrInvalidVector is returned for vectors holding NaN/Inf values, or
	// zero-magnitude vectors under the cosine metric.
	ErrInvalidVector = errors.New("cluster: invalid vector")

	// ErrDegenerateLabeling is returned by Silhouette when the labeling has a
	// single cluster or one cluster per document.
	ErrDegenerateLabeling = errors.New("cluster: silhouette undefined for labeling")

	ErrUnknownMethod      = errors.New("cluster: unknown linkage method")
	ErrUnknownMetric      = errors.New("cluster: unknown distance metric")
	ErrIncompatibleMetric = errors.New("cluster: incompatible distance metric")
	ErrInvalidRange       = errors.New("cluster: invalid threshold range")
	ErrLabelNotFound      = errors.New("cluster: label not found")
)
