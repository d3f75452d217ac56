package orders

const (
	TopicOrderPlaced        = "store.order.placed"
	TopicOrderStatusChanged = "store.order.status"
	TopicStockAdjusted      = "store.inventory.adjusted"
)

// Partition key = aggregate id, so all events of one order (or product) stay ordered.
func PartitionKey(id string) []byte { return []byte(id) }
