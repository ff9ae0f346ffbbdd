package vpnkeep

import "sort"

// PortRange is an inclusive port interval.
type PortRange struct {
	Min int
	Max int
}

// Contains reports whether p lies within the range.
func (r PortRange) Contains(p int) bool {
	return p >= r.Min && p <= r.Max
}

// Plan is the firewall diff for one port transition. Closes are applied
// before opens.
type Plan struct {
	ToClose []int
	ToOpen  []int
}

// Empty reports whether the plan requires no firewall calls.
func (p Plan) Empty() bool {
	return len(p.ToClose) == 0 && len(p.ToOpen) == 0
}

// PlanTransition computes which firewall rules to add and remove so that
// exactly the current port is open. Only ports within the safe range are
// ever scheduled for removal: rules outside it are assumed to belong to the
// rest of the system and are left alone no matter how stale they look.
//
// The function is pure; the caller applies the plan.
func PlanTransition(current int, openPorts map[int]struct{}, safe PortRange) Plan {
	var plan Plan

	if _, open := openPorts[current]; !open {
		plan.ToOpen = append(plan.ToOpen, current)
	}

	for port := range openPorts {
		if port == current {
			continue
		}
		if !safe.Contains(port) {
			continue
		}
		plan.ToClose = append(plan.ToClose, port)
	}
	sort.Ints(plan.ToClose)

	return plan
}
