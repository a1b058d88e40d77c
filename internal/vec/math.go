package vec

// FloorDiv выполняет целочисленное деление с округлением вниз.
// Для отрицательных координат обычное деление Go округляет к нулю,
// что ломает соответствие мир↔чанк на границе нуля.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// FloorMod возвращает неотрицательный остаток, согласованный с FloorDiv:
// a == FloorDiv(a, b)*b + FloorMod(a, b) для любого a.
func FloorMod(a, b int) int {
	m := a % b
	if m != 0 && ((a < 0) != (b < 0)) {
		m += b
	}
	return m
}
