package block

// ID представляет идентификатор типа вокселя.
// Значение 0 зарезервировано за воздухом (пустой ячейкой).
type ID uint8

// Константы ID блоков
const (
	Air    ID = iota // 0 — пустая ячейка
	Grass            // 1
	Dirt             // 2
	Stone            // 3
	Sand             // 4
	Snow             // 5
	Water            // 6 — полупрозрачный
	Wood             // 7
	Leaves           // 8
)

// Def описывает элемент палитры: имя и базовый цвет RGBA.
// Палитра — неизменяемая конфигурация; ядро её не мутирует.
type Def struct {
	Name        string
	Color       [4]float32 // RGBA, 0..1
	Translucent bool
}

var registry = map[ID]Def{
	Air:    {Name: "air", Color: [4]float32{0, 0, 0, 0}, Translucent: true},
	Grass:  {Name: "grass", Color: [4]float32{0.353, 0.675, 0.298, 1}},
	Dirt:   {Name: "dirt", Color: [4]float32{0.545, 0.396, 0.247, 1}},
	Stone:  {Name: "stone", Color: [4]float32{0.502, 0.502, 0.502, 1}},
	Sand:   {Name: "sand", Color: [4]float32{0.871, 0.816, 0.580, 1}},
	Snow:   {Name: "snow", Color: [4]float32{0.949, 0.957, 0.969, 1}},
	Water:  {Name: "water", Color: [4]float32{0.204, 0.412, 0.800, 0.55}, Translucent: true},
	Wood:   {Name: "wood", Color: [4]float32{0.420, 0.310, 0.180, 1}},
	Leaves: {Name: "leaves", Color: [4]float32{0.239, 0.510, 0.239, 1}},
}

// Get возвращает описание блока для указанного ID
func Get(id ID) (Def, bool) {
	def, exists := registry[id]
	return def, exists
}

// IsValid проверяет, является ли ID допустимым идентификатором блока
func IsValid(id ID) bool {
	_, exists := registry[id]
	return exists
}

// IsAir сообщает, пуста ли ячейка
func IsAir(id ID) bool {
	return id == Air
}

// IsSolid сообщает, занимает ли блок ячейку (всё, кроме воздуха)
func IsSolid(id ID) bool {
	return id != Air
}

// IsOpaque сообщает, непрозрачен ли блок (для отсечения граней и AO)
func IsOpaque(id ID) bool {
	def, exists := registry[id]
	return exists && !def.Translucent
}
