package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// FileName is the log file written inside the log directory.
const FileName = "codequery.log"

// Init installs a global zap logger writing to stdout and to a JSON log
// file in logDir. Stdout gets the console encoder when it is a terminal.
func Init(logDir string) (*zap.Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	logFile, err := os.OpenFile(filepath.Join(logDir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}

	l := New(zapcore.AddSync(os.Stdout), zapcore.AddSync(logFile), term.IsTerminal(int(os.Stdout.Fd())))
	zap.ReplaceGlobals(l)
	return l, nil
}

// New builds the tee logger used by Init.
func New(stdout, file zapcore.WriteSyncer, console bool) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	stdoutEnc := zapcore.NewJSONEncoder(encCfg)
	if console {
		consoleCfg := encCfg
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		stdoutEnc = zapcore.NewConsoleEncoder(consoleCfg)
	}

	core := zapcore.NewTee(
		zapcore.NewCore(stdoutEnc, stdout, zap.InfoLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), file, zap.InfoLevel),
	)
	return zap.New(core, zap.AddCaller())
}
