package errors

// CodePair maps an error code onto transport-specific codes
type CodePair struct {
	HTTPStatus int
	GRPCCode   int
}

var codeMapping = map[string]CodePair{
	ErrInternal:           {500, 13}, // INTERNAL
	ErrNotFound:           {404, 5},  // NOT_FOUND
	ErrInvalidArgument:    {400, 3},  // INVALID_ARGUMENT
	ErrUnauthenticated:    {401, 16}, // UNAUTHENTICATED
	ErrUnauthorized:       {403, 7},  // PERMISSION_DENIED
	ErrConflict:           {409, 6},  // ALREADY_EXISTS
	ErrFailedPrecondition: {422, 9},  // FAILED_PRECONDITION
	ErrBadGateway:         {502, 14}, // UNAVAILABLE
	ErrTimeout:            {504, 4},  // DEADLINE_EXCEEDED
	ErrNotImplemented:     {501, 12}, // UNIMPLEMENTED
}

// GetCodeMapping returns the HTTP status and gRPC code for an error code.
// Unknown codes map to internal.
func GetCodeMapping(code string) (int, int) {
	if pair, ok := codeMapping[code]; ok {
		return pair.HTTPStatus, pair.GRPCCode
	}
	return 500, 13
}

// CodeOf extracts the code of the first coded error in the chain.
func CodeOf(err error) string {
	if coded, ok := asCoded(err); ok {
		return coded.Code()
	}
	return ErrInternal
}
