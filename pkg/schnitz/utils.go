package schnitz

import (
	"reflect"
)

// createResponse creates a StdResponse with the given body and error
func createResponse[T any](body T, err error) StdResponse[T] {
	if err != nil {
		errMsg := err.Error()
		return StdResponse[T]{
			Body:  body,
			Error: &errMsg,
		}
	}
	return StdResponse[T]{
		Body:  body,
		Error: nil,
	}
}

// RoutePath is the path a request type is served on: "/" + the type name.
func RoutePath(request any) string {
	requestType := reflect.TypeOf(request)
	for requestType != nil && requestType.Kind() == reflect.Ptr {
		requestType = requestType.Elem()
	}
	if requestType == nil {
		return "/"
	}
	return "/" + requestType.Name()
}
