// Package pkg provides the libraries behind normalizr.
//
// # Overview
//
// Normalizr flattens nested JSON documents into a store of entity records
// keyed by module, resource and id, and rebuilds nested documents from such
// a store. The pkg directory is organized into four areas:
//
//  1. Engine: [schema] declares entities and composite nodes, [normalize]
//     flattens and rebuilds documents, [registry] holds named schemas
//  2. Schema configs: [builder] turns TOML, YAML or JSON configs into
//     registered schemas
//  3. Infrastructure: [cache], [document], [observability] and [errors]
//  4. Orchestration: [pipeline] runs build → normalize → encode with caching,
//     [render] draws the relation graph of a registry
//
// # Architecture
//
// The typical data flow:
//
//	schema configs (TOML/YAML/JSON)
//	         ↓
//	    [builder] package (fixed-point build)
//	         ↓
//	    [registry] package (module → resource → entity)
//	         ↓
//	    [normalize] package (Normalize / Denormalize)
//	         ↓
//	    {"entities": ..., "result": ...}
//
// # Quick Start
//
//	post := schema.MustEntity("post", map[string]schema.Node{
//	    "author": schema.User,
//	}, schema.WithModule("feed"))
//
//	res, err := normalize.Normalize(input, post)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	nested, err := normalize.Denormalize(res.Result, post, res.Entities)
package pkg
