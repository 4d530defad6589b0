package audit

// approvalRule decides whether one recorded action needs the secondary
// compliance sign-off. Predicate may be nil, meaning the (action, resource)
// pair alone decides.
type approvalRule struct {
	action    ActionKind
	resource  ResourceType      // empty matches any resource
	predicate func(Detail) bool // nil matches any detail
}

// approvalPolicy is the fixed classification table. Immutable after
// initialization; Record consults it on every call.
//
// Exports always need sign-off. Deletes need it when they touch a member
// record. Searches need it when they span the whole directory rather than
// named cohorts.
var approvalPolicy = []approvalRule{
	{action: ActionExport},
	{action: ActionDelete, resource: ResourceMember},
	{action: ActionSearch, predicate: searchSpansAllCohorts},
}

func searchSpansAllCohorts(d Detail) bool {
	search, ok := d.(SearchDetail)
	return ok && search.AllCohorts
}

// requiresApproval evaluates the policy table for one entry.
func requiresApproval(action ActionKind, resource ResourceType, detail Detail) bool {
	for _, rule := range approvalPolicy {
		if rule.action != action {
			continue
		}
		if rule.resource != "" && rule.resource != resource {
			continue
		}
		if rule.predicate != nil && !rule.predicate(detail) {
			continue
		}
		return true
	}
	return false
}
