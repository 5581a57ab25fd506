package domain

// Lot 一笔尚未平掉的开仓明细
type Lot struct {
	Price    float64
	Quantity int64
}

// LotQueue 按开仓时间排列的明细队列：新开仓压入队首，平仓从队尾
// （最老的一笔）开始消耗。零值即空队列。
type LotQueue struct {
	lots []Lot
}

// PushFront 新开仓明细压入队首
func (q *LotQueue) PushFront(price float64, quantity int64) {
	q.lots = append([]Lot{{Price: price, Quantity: quantity}}, q.lots...)
}

// Consume 从队尾消耗 quantity 手，返回被消耗的明细（按消耗顺序）。
// 队尾明细大于剩余需求时就地拆分，队列耗尽则提前返回。
func (q *LotQueue) Consume(quantity int64) []Lot {
	consumed := make([]Lot, 0, len(q.lots))
	left := quantity
	for left > 0 && len(q.lots) > 0 {
		last := len(q.lots) - 1
		lot := q.lots[last]
		if lot.Quantity > left {
			q.lots[last].Quantity -= left
			consumed = append(consumed, Lot{Price: lot.Price, Quantity: left})
			return consumed
		}
		q.lots = q.lots[:last]
		consumed = append(consumed, lot)
		left -= lot.Quantity
	}
	return consumed
}

// Quantity 队列总持仓
func (q *LotQueue) Quantity() int64 {
	var total int64
	for _, lot := range q.lots {
		total += lot.Quantity
	}
	return total
}

// Len 明细笔数
func (q *LotQueue) Len() int {
	return len(q.lots)
}

// Lots 队首到队尾的明细副本
func (q *LotQueue) Lots() []Lot {
	return append(q.lots[:0:0], q.lots...)
}

// Reset 用给定明细重建队列，不带参数即清空
func (q *LotQueue) Reset(lots ...Lot) {
	q.lots = append(q.lots[:0:0], lots...)
}
