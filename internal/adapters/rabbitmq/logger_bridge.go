package rabbitmq_adapter

import (
	"fmt"

	"real-estate-search-service/internal/core/port"
	"real-estate-search-service/pkg/rabbitmq/rabbitmq_common"
)

// PkgLoggerBridge переводит вызовы pkg/rabbitmq (пары ключ-значение) в LoggerPort
type PkgLoggerBridge struct {
	target port.LoggerPort
}

func NewPkgLoggerBridge(logger port.LoggerPort) rabbitmq_common.Logger {
	return &PkgLoggerBridge{target: logger}
}

// pairsToFields: нестроковый ключ приводится к строке, значение без пары попадает в "extra"
func pairsToFields(kv []interface{}) port.Fields {
	if len(kv) == 0 {
		return nil
	}
	fields := make(port.Fields, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		if i+1 == len(kv) {
			fields["extra"] = kv[i]
			break
		}
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields[key] = kv[i+1]
	}
	return fields
}

func (b *PkgLoggerBridge) Debug(msg string, kv ...interface{}) { b.target.Debug(msg, pairsToFields(kv)) }
func (b *PkgLoggerBridge) Info(msg string, kv ...interface{})  { b.target.Info(msg, pairsToFields(kv)) }
func (b *PkgLoggerBridge) Warn(msg string, kv ...interface{})  { b.target.Warn(msg, pairsToFields(kv)) }

func (b *PkgLoggerBridge) Error(err error, msg string, kv ...interface{}) {
	b.target.Error(msg, err, pairsToFields(kv))
}
