// Package document reads and writes the JSON documents the engine works on.
//
// Input documents decode to map[string]any, []any and scalars. Integers
// decode to int64 and other numbers to float64, so ids like 7 keep their
// integer form through a normalize → write → read → denormalize round trip.
//
// A normalized document has the layout of [normalize.Result]:
//
//	{
//	  "entities": {"feed": {"post": {"1": {...}}}},
//	  "result": 1
//	}
//
// References inside stored records are written as
// {"module_name", "resource_name", "id"} objects and read back as plain
// maps, which [normalize.AsRef] recognizes.
//
// Output is indented with sorted keys, so equal documents serialize to equal
// bytes.
package document
