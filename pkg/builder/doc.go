// Package builder turns declarative schema configs into registered entity
// schemas.
//
// A [Config] names a (module, resource) pair and maps field names to
// references of the form "module.resource", "resource" (same module) or
// either with a "[]" suffix for arrays:
//
//	[[schemas]]
//	module_name = "feed"
//	resource_name = "post"
//	[schemas.definition]
//	photo = "media.photo"
//	comments = "comment[]"
//
// Configs may reference each other in any order. [Builder.Build] runs rounds
// until every config resolves, a round registers nothing new, or MaxRounds is
// reached. A config is registered in the round after all of its references
// became resolvable. Whatever is left is reported in [Report.Unresolved]
// rather than dropped silently.
//
// Every built entity carries the feed conventions of [FeedProcessor] and the
// shared default fields of [DefaultFields].
package builder
