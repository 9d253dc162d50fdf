// Package codec flattens nested JSON-shaped values into (Path, Value)
// entries and rebuilds them.
//
// Objects contribute an existence marker at their own path, leaf lists are
// serialized whole into one JSON array string, and lists holding objects are
// rejected. Paths stop growing at types.MaxDepth.
package codec
