package plan

import (
	"encoding/json"
	"fmt"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/store"
)

// The store keeps entity metadata as loosely typed JSON bags. These helpers
// move between the bags and the typed model; malformed fields surface as
// errors rather than panics.

func OrderFromEntity(entity store.Entity) (Order, error) {
	var order Order
	if err := remarshal(entity.Metadata, &order); err != nil {
		return Order{}, fmt.Errorf("decode order %s: %w", entity.ID, err)
	}
	order.ID = entity.ID
	return order, nil
}

func OrderDetailFromEntity(entity store.Entity) (OrderDetail, error) {
	raw, ok := entity.Metadata["orderDetail"]
	if !ok || raw == nil {
		return OrderDetail{}, nil
	}
	var detail OrderDetail
	if err := remarshal(raw, &detail); err != nil {
		return nil, fmt.Errorf("decode plan %s orderDetail: %w", entity.ID, err)
	}
	return detail, nil
}

// OrderDetailMetadata renders the full detail map as a metadata partial for
// store.UpdateMetadata. The store shallow-merges at the top level, so the
// whole map goes back in one write; the plan lock guarantees nobody else
// wrote in between.
func OrderDetailMetadata(detail OrderDetail) map[string]any {
	var out any
	if err := remarshal(detail, &out); err != nil {
		out = map[string]any{}
	}
	return map[string]any{"orderDetail": out}
}

func remarshal(in, out any) error {
	buf, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, out)
}
