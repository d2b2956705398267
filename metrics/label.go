package metrics

// Label 指标标签
//
// 标签值应当是低基数的：provider、operation、state 可以，
// game id、request id 不可以。
type Label struct {
	Key   string
	Value string
}

// L 创建一个 Label
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}
