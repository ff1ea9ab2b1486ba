package logging

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New construye un logger que escribe en archivo y, si echo está activo, también en consola
// (warn y superiores a stderr, el resto a stdout). Un path vacío desactiva el archivo.
func New(path, level string, echo bool) (*zap.Logger, error) {
	lvl := ParseLevel(level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var cores []zapcore.Core
	if strings.TrimSpace(path) != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		file := zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), file, lvl))
	}

	if echo {
		consoleEnc := zapcore.NewConsoleEncoder(encCfg)
		low := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= lvl && l < zapcore.WarnLevel
		})
		high := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= lvl && l >= zapcore.WarnLevel
		})
		cores = append(cores,
			zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stdout), low),
			zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), high),
		)
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}

// ParseLevel traduce el nivel textual; acepta "warn" y "warning". Desconocido => info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
