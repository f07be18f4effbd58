package schema

// Shared entity schemas referenced across modules. User is the canonical
// target of the reserved "_user" registry name.
var (
	User = MustEntity("_user", nil, WithModule("user"), WithResource("user"))

	Tag = MustEntity("tag", nil, WithModule("core"), WithResource("tag"))

	Attachment = MustEntity("attachment", nil, WithModule("core"), WithResource("attachment"))
)
