// Package results separates domain failures from infrastructure errors in service operations.
package results

// OperationResult carries either a success payload or a domain failure. An
// infrastructure error travels separately as the second return value of the
// operation that produced the result.
type OperationResult[S any, F any] struct {
	Success *S
	Failure *F
}

// SuccessResult wraps a success payload.
func SuccessResult[S any, F any](s S) OperationResult[S, F] {
	return OperationResult[S, F]{Success: &s}
}

// FailureResult wraps a domain failure.
func FailureResult[S any, F any](f F) OperationResult[S, F] {
	return OperationResult[S, F]{Failure: &f}
}

// IsSuccess reports whether the result holds a success payload.
func (r OperationResult[S, F]) IsSuccess() bool {
	return r.Success != nil
}

// IsFailure reports whether the result holds a domain failure.
func (r OperationResult[S, F]) IsFailure() bool {
	return r.Failure != nil
}
