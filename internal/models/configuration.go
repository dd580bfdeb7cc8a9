package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ConfigKind тип значения в конфигурации периферии
type ConfigKind uint8

const (
	KindNull ConfigKind = iota
	KindString
	KindNumber
	KindBool
	KindMap
	KindList
)

// ConfigValue размеченное объединение для значений конфигурации.
// Числа хранятся как json.Number, чтобы 115200 не превращался в 115200.0.
type ConfigValue struct {
	Kind ConfigKind
	Str  string
	Num  json.Number
	Bool bool
	Map  Configuration
	List []ConfigValue
}

// Configuration непрозрачная конфигурация периферии (ключ -> значение)
type Configuration map[string]ConfigValue

// StringValue создает строковое значение
func StringValue(s string) ConfigValue {
	return ConfigValue{Kind: KindString, Str: s}
}

// IntValue создает целое числовое значение
func IntValue(n int64) ConfigValue {
	return ConfigValue{Kind: KindNumber, Num: json.Number(strconv.FormatInt(n, 10))}
}

// FloatValue создает дробное числовое значение
func FloatValue(f float64) ConfigValue {
	return ConfigValue{Kind: KindNumber, Num: json.Number(strconv.FormatFloat(f, 'f', -1, 64))}
}

// BoolValue создает логическое значение
func BoolValue(b bool) ConfigValue {
	return ConfigValue{Kind: KindBool, Bool: b}
}

// MapValue создает вложенную конфигурацию
func MapValue(m Configuration) ConfigValue {
	return ConfigValue{Kind: KindMap, Map: m}
}

// ListValue создает список значений
func ListValue(items ...ConfigValue) ConfigValue {
	return ConfigValue{Kind: KindList, List: items}
}

// MarshalJSON сериализует значение в соответствии с его типом
func (v ConfigValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		if v.Num == "" {
			return []byte("0"), nil
		}
		return []byte(v.Num), nil
	case KindBool:
		return json.Marshal(v.Bool)
	case KindMap:
		if v.Map == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.Map)
	case KindList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON разбирает произвольное JSON-значение
func (v *ConfigValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("invalid configuration value: %w", err)
	}

	parsed, err := fromInterface(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func fromInterface(raw interface{}) (ConfigValue, error) {
	switch t := raw.(type) {
	case nil:
		return ConfigValue{Kind: KindNull}, nil
	case string:
		return StringValue(t), nil
	case json.Number:
		return ConfigValue{Kind: KindNumber, Num: t}, nil
	case bool:
		return BoolValue(t), nil
	case map[string]interface{}:
		m := make(Configuration, len(t))
		for key, item := range t {
			val, err := fromInterface(item)
			if err != nil {
				return ConfigValue{}, err
			}
			m[key] = val
		}
		return MapValue(m), nil
	case []interface{}:
		list := make([]ConfigValue, 0, len(t))
		for _, item := range t {
			val, err := fromInterface(item)
			if err != nil {
				return ConfigValue{}, err
			}
			list = append(list, val)
		}
		return ListValue(list...), nil
	default:
		return ConfigValue{}, fmt.Errorf("unsupported configuration value %T", raw)
	}
}

// String возвращает значение в виде текста для логов
func (v ConfigValue) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num.String()
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNull:
		return "null"
	default:
		data, err := v.MarshalJSON()
		if err != nil {
			return "<invalid>"
		}
		return string(data)
	}
}

// Keys возвращает ключи в отсортированном порядке
func (c Configuration) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetString возвращает строковое значение ключа (числа и bool приводятся к тексту)
func (c Configuration) GetString(key string) string {
	v, ok := c[key]
	if !ok || v.Kind == KindNull {
		return ""
	}
	return v.String()
}

// GetInt возвращает значение как целое. Строки вида "115200" тоже принимаются.
func (c Configuration) GetInt(key string) int64 {
	return int64(c.GetFloat(key))
}

// GetFloat возвращает значение как число, 0 если значение не числовое
func (c Configuration) GetFloat(key string) float64 {
	v, ok := c[key]
	if !ok {
		return 0
	}

	var text string
	switch v.Kind {
	case KindNumber:
		text = v.Num.String()
	case KindString:
		text = strings.TrimSpace(v.Str)
	default:
		return 0
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0
	}
	return f
}

// GetBool возвращает логическое значение; "true"/"1" в строке считаются истиной
func (c Configuration) GetBool(key string) bool {
	v, ok := c[key]
	if !ok {
		return false
	}

	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindString:
		b, err := strconv.ParseBool(v.Str)
		return err == nil && b
	case KindNumber:
		return c.GetFloat(key) != 0
	default:
		return false
	}
}
