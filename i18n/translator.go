package i18n

import "strings"

// Translator retrieves localized messages for error codes.
// data provides optional metadata to embed in the message (for example,
// "field" or "want"); placeholders are written as {key}.
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var dict = map[string]map[string]string{
	"en": {
		"duplicate_field_name":          "duplicate field name {field}",
		"formatter_without_deformatter": "formatter needs a matching deformatter",
		"unsupported_primitive":         "unsupported primitive type {type}",
		"invalid_length":                "invalid length specification",
		"invalid_bit_width":             "bit width must be between 1 and 32",
		"invalid_option":                "invalid option",
		"unexpected_eof":                "unexpected end of input",
		"truncated_stream":              "stream ended inside a record",
		"assertion_failed":              "assertion failed",
		"tag_not_found":                 "tag {tag} not found in object",
		"invalid_choice":                "invalid choice",
		"invalid_encoding":              "invalid encoding",
		"no_progress":                   "schema consumed no input",
		"nested_overflow":               "nested type wrote more than its reserved length",
		"invalid_mapping":               "invalid mapping",
		"missing_field":                 "field {field} not found",
		"invalid_value":                 "invalid value",
		"short_buffer":                  "target buffer too small",
	},
	"ja": {
		"duplicate_field_name":          "フィールド名 {field} が重複しています",
		"formatter_without_deformatter": "formatter には対応する deformatter が必要です",
		"unsupported_primitive":         "未対応のプリミティブ型 {type} です",
		"invalid_length":                "長さの指定が不正です",
		"invalid_bit_width":             "ビット幅は 1 から 32 の範囲で指定してください",
		"invalid_option":                "オプションが不正です",
		"unexpected_eof":                "入力が途中で終了しました",
		"truncated_stream":              "レコードの途中でストリームが終了しました",
		"assertion_failed":              "アサーションに失敗しました",
		"tag_not_found":                 "タグ {tag} がオブジェクトにありません",
		"invalid_choice":                "選択肢が不正です",
		"invalid_encoding":              "エンコーディングが不正です",
		"no_progress":                   "スキーマが入力を消費しませんでした",
		"nested_overflow":               "ネストした型が予約長を超えて書き込みました",
		"invalid_mapping":               "マッピングが不正です",
		"missing_field":                 "フィールド {field} がありません",
		"invalid_value":                 "値が不正です",
		"short_buffer":                  "出力バッファが小さすぎます",
	},
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dict[t.lang][code]
	if !ok {
		return code
	}
	for k, v := range data {
		msg = strings.ReplaceAll(msg, "{"+k+"}", v)
	}
	return msg
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
