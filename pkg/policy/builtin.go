package policy

// BulkMutationThreshold is the number of targets above which a mutation
// triggers the bulk-mutation warning.
const BulkMutationThreshold = 10

// GetBuiltinPolicies returns all built-in policies. Built-in policies only warn.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		bulkMutationPolicy(),
		duplicateTargetsPolicy(),
	}
}

// bulkMutationPolicy warns about mutations of many instances at once.
func bulkMutationPolicy() Policy {
	return Policy{
		Name:        "bulk-mutation",
		Description: "Warns about mutations of more than 10 instances",
		Severity:    SeverityWarning,
		Rego: `package ceres.builtin.bulk

deny contains violation if {
	not input.dry
	count(input.instance_ids) > 10
	violation := {
		"message": sprintf("going to %s %d instances - please review carefully", [input.action, count(input.instance_ids)]),
		"severity": "warning",
	}
}`,
	}
}

// duplicateTargetsPolicy warns about instance ids given more than once.
func duplicateTargetsPolicy() Policy {
	return Policy{
		Name:        "duplicate-targets",
		Description: "Warns about instance ids listed more than once",
		Severity:    SeverityWarning,
		Rego: `package ceres.builtin.duplicates

deny contains violation if {
	some id in input.instance_ids
	count([x | some x in input.instance_ids; x == id]) > 1
	violation := {
		"message": sprintf("instance %s is listed more than once", [id]),
		"severity": "warning",
		"instance": id,
	}
}`,
	}
}
