package sales

const TopicSales = "pos.sales"

// Partition key = transaction code so events of one sale stay ordered.
func PartitionKey(code string) []byte { return []byte(code) }
