package facet

import (
	"maps"
	"slices"

	"github.com/starford/othala/internal/models"
)

// AutoSelector seeds the asset-type selection once, from the first facet
// distribution whose asset-type facet is non-empty after an empty one.
// Later distributions never overwrite a selection the user changed.
type AutoSelector struct {
	hadKeys bool
}

// Observe records dist and reports whether it changed the selection of set.
func (a *AutoSelector) Observe(set *FilterSet, dist Distribution) bool {
	counts := dist[models.AssetTypeNameKey]
	hasKeys := len(counts) > 0
	rising := hasKeys && !a.hadKeys
	a.hadKeys = hasKeys
	if !rising {
		return false
	}
	set.SetSelectedAssetTypeNames(slices.Sorted(maps.Keys(counts)))
	return true
}
