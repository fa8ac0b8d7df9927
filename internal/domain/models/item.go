package models

import "math"

// MaxItemID is the largest identifier the items table can hold (id is a 32-bit INTEGER).
// Larger identifiers are valid input but can never match a row.
const MaxItemID = math.MaxInt32

// Item is a single row of the items table.
// Item 是 items 表中的一行记录，由外部数据存储持有，服务不跨请求缓存。
type Item struct {
	// ID is the positive integer primary key.
	// ID 是正整数主键。
	ID int64 `json:"id"`
	// Name is the display name stored with the item.
	// Name 是与条目一同存储的名称。
	Name string `json:"name"`
}
