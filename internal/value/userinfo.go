package value

// UserInfoBody is the payload of a TagUserInfo object: an opaque
// host-provided payload with a finalizer, released when the last
// strong reference is dropped (spec.md §3).
type UserInfoBody struct {
	Payload  any
	Finalize func(payload any)
}

var userInfoDescriptor = &Descriptor{
	Tag:  TagUserInfo,
	Name: "userinfo",
	Destroy: func(o *Object) {
		ub := o.body.(*UserInfoBody)
		if ub.Finalize != nil {
			ub.Finalize(ub.Payload)
		}
		ub.Payload = nil
	},
	Equals: func(a, b *Object) bool { return a == b },
}

// NewUserInfo wraps payload in a reference-counted handle. finalize
// (may be nil) runs exactly once, when the handle's refcount reaches
// zero.
func NewUserInfo(payload any, finalize func(any)) Value {
	return fromObject(TagUserInfo, newObject(userInfoDescriptor, &UserInfoBody{Payload: payload, Finalize: finalize}))
}

func UserInfoPayload(v Value) any { return v.obj.body.(*UserInfoBody).Payload }
