package chess

// GetMaterialCount sums StandardPieceValues for each side.
func (e *Engine) GetMaterialCount() MaterialCount {
	var count MaterialCount
	for _, p := range e.board.Pieces() {
		value := StandardPieceValues[p.Kind]
		if p.Color == White {
			count.White += value
		} else {
			count.Black += value
		}
	}
	return count
}

// GetMaterialBalance is White's material minus Black's.
func (e *Engine) GetMaterialBalance() int {
	count := e.GetMaterialCount()
	return count.White - count.Black
}

// GetPieceValues maps each piece kind's name to the value used in material
// counts.
func (e *Engine) GetPieceValues() map[string]int {
	values := make(map[string]int, len(StandardPieceValues))
	for kind, v := range StandardPieceValues {
		values[kind.String()] = v
	}
	return values
}
