package schema

import "github.com/starford/othala/internal/models"

// FieldPlan is the difference between the stored own fields of a node and an
// incoming replacement list.
type FieldPlan struct {
	// Create holds incoming fields without a known id.
	Create []models.FieldDefinition
	// Update holds incoming fields whose id exists in the prior version.
	Update []models.FieldDefinition
	// Delete holds ids of prior fields absent from the incoming list.
	Delete []string
}

// PlanFieldUpdate diffs prior against next by field id. Positions are
// reassigned from the order of next. A known id listed twice is kept at its
// first position only.
func PlanFieldUpdate(prior, next []models.FieldDefinition) FieldPlan {
	known := make(map[string]struct{}, len(prior))
	for _, f := range prior {
		known[f.ID] = struct{}{}
	}

	var plan FieldPlan
	kept := make(map[string]struct{}, len(next))
	for i, f := range next {
		f.Position = i
		if _, ok := known[f.ID]; ok && f.ID != "" {
			if _, dup := kept[f.ID]; dup {
				continue
			}
			kept[f.ID] = struct{}{}
			plan.Update = append(plan.Update, f)
			continue
		}
		f.ID = ""
		plan.Create = append(plan.Create, f)
	}
	for _, f := range prior {
		if _, ok := kept[f.ID]; !ok {
			plan.Delete = append(plan.Delete, f.ID)
		}
	}
	return plan
}
