package protocol

// RouteScope is the literal "component" field value that addresses the
// owning route's event table instead of a named component.
const RouteScope = "route"

// TargetKind is the two-case handler scope discriminator.
type TargetKind uint8

const (
	// TargetRoute addresses the single route-fallback handler.
	TargetRoute TargetKind = iota

	// TargetComponent addresses a named component's handler table.
	TargetComponent
)

// String returns the string representation of the target kind.
func (k TargetKind) String() string {
	switch k {
	case TargetRoute:
		return "route"
	case TargetComponent:
		return "component"
	default:
		return "unknown"
	}
}

// Target is the handler scope of a server-event message, decided once at
// parse time from the raw "component" field. Downstream dispatch switches on
// Kind and never re-inspects message shape.
type Target struct {
	Kind TargetKind

	// Component is the component name; set only when Kind is TargetComponent.
	Component string
}

// RouteTarget returns the target addressing the route fallback.
func RouteTarget() Target {
	return Target{Kind: TargetRoute}
}

// ComponentTarget returns the target addressing the named component.
func ComponentTarget(name string) Target {
	return Target{Kind: TargetComponent, Component: name}
}

// resolveTarget maps the wire "component" field to a Target. The literal
// "route" and an absent/empty field both mean the route scope; anything else
// is a component name.
func resolveTarget(component string) Target {
	if component == "" || component == RouteScope {
		return RouteTarget()
	}
	return ComponentTarget(component)
}

// wireScope maps a Target back to the wire "component" field value.
func (t Target) wireScope() string {
	if t.Kind == TargetComponent {
		return t.Component
	}
	return RouteScope
}
