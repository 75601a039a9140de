package http

// Operation is the handler selected for a (Method, Route) pair.
type Operation int

const (
	// OpUnknown covers unknown methods and unknown routes. Answered with 404.
	OpUnknown Operation = iota
	OpGetRoot
	OpGetEcho
	OpGetUserAgent
	OpGetFiles
	OpPostFiles
	// OpUnsupported is any recognised but unimplemented method. Answered with 501.
	OpUnsupported
)

// String returns a stable name used in logs and metric labels.
func (o Operation) String() string {
	switch o {
	case OpGetRoot:
		return "GET_ROOT"
	case OpGetEcho:
		return "GET_ECHO"
	case OpGetUserAgent:
		return "GET_USER_AGENT"
	case OpGetFiles:
		return "GET_FILES"
	case OpPostFiles:
		return "POST_FILES"
	case OpUnsupported:
		return "UNSUPPORTED"
	default:
		return "UNKNOWN"
	}
}

// Dispatch maps a method and route to an Operation.
//
// Dispatch is total and performs no I/O:
//
//	method \ route | Root     | Echo    | UserAgent    | Files     | Unknown
//	Get            | GetRoot  | GetEcho | GetUserAgent | GetFiles  | Unknown
//	Post           | Unknown  | Unknown | Unknown      | PostFiles | Unknown
//	Unsupported    | Unsupported for every route
//	Unknown        | Unknown for every route
func Dispatch(method Method, route Route) Operation {
	switch method {
	case MethodGet:
		switch route {
		case RouteRoot:
			return OpGetRoot
		case RouteEcho:
			return OpGetEcho
		case RouteUserAgent:
			return OpGetUserAgent
		case RouteFiles:
			return OpGetFiles
		}
	case MethodPost:
		if route == RouteFiles {
			return OpPostFiles
		}
	case MethodUnsupported:
		return OpUnsupported
	}
	return OpUnknown
}
