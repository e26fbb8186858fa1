package port

import "context"

// ResponseHint - необязательная подсказка о форме ответа модели
type ResponseHint string

const (
	HintNone       ResponseHint = ""
	HintJSONObject ResponseHint = "json_object"
)

// LanguageModelPort - одна операция текстового дополнения
type LanguageModelPort interface {
	Complete(ctx context.Context, prompt string, hint ResponseHint) (string, error)
}
