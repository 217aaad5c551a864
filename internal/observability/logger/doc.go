// Package logger expone un logger Zap singleton con scoping por contexto.
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level, ServiceName: "invites-svc"})
//	defer logger.Sync()
//
// En controllers y services:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Ensure"))
//	log.Info("invitation issued", logger.ClassroomID(id), logger.TokenTail(tok))
//
// Los tokens de invitación nunca se loguean completos; usar TokenTail.
package logger
