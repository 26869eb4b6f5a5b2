package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"Concord/internal/bitfield"
	"Concord/internal/client"
	"Concord/internal/gateway"
	"Concord/internal/gateway/actor"
	"Concord/internal/inspect"
	"Concord/internal/metrics"
	"Concord/internal/rest"
	"Concord/internal/shared/logs"
	"Concord/internal/shared/serverconfig"
	transporthttp "Concord/internal/shared/transport/http"
	"Concord/modules/kit/logx"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，默认从当前目录向上查找 configs/conf.yml")
	flag.Parse()

	serverconfig.Load(*configPath, func() {
		logs.Info("配置已热更新，网关与缓存参数需重启生效")
	})
	conf := serverconfig.Conf
	if err := logs.Init("gateway", conf.Log); err != nil {
		panic(err)
	}
	defer logs.Sync()
	baseLogger := logx.NewZapLogger(logs.Logger())

	recorder := metrics.New()
	requester := rest.NewHTTPRequester(rest.Options{
		BaseURL:   conf.REST.BaseURL,
		Version:   conf.REST.Version,
		Token:     conf.Gateway.Token,
		UserAgent: conf.REST.UserAgent,
		Timeout:   time.Duration(conf.REST.TimeoutMS) * time.Millisecond,
	})
	requester.SetObserver(recorder)

	cl, err := client.New(client.Options{
		REST:     requester,
		Logger:   baseLogger,
		Cache:    conf.Cache,
		NodeID:   conf.Snowflake.NodeID,
		Recorder: recorder,
	})
	if err != nil {
		logs.Fatal("client init failed", zap.Error(err))
	}
	if err := recorder.TrackCache(cl); err != nil {
		logs.Fatal("metrics register failed", zap.Error(err))
	}
	cl.StartSweepers()

	runtime := actor.NewRuntime(cl, baseLogger, 0)
	defer runtime.Shutdown()

	intents, err := bitfield.Intents.Resolve(conf.Gateway.Intents)
	if err != nil {
		logs.Fatal("invalid gateway intents", zap.Error(err), zap.Strings("intents", conf.Gateway.Intents))
	}
	conn := gateway.New(gateway.Options{
		URL:            conf.Gateway.URL,
		Token:          conf.Gateway.Token,
		Intents:        intents,
		LargeThreshold: conf.Gateway.LargeThreshold,
		MaxRetries:     conf.Gateway.MaxRetries,
		Logger:         baseLogger,
	}, runtime)

	host := conf.Inspect.Host
	if host == "" {
		host = "127.0.0.1"
	}
	gin.SetMode(gin.ReleaseMode)
	httpServer := transporthttp.NewHttpServer(fmt.Sprintf("%s:%d", host, conf.Inspect.Port), nil, baseLogger)
	httpServer.Register(inspect.New(cl, inspect.Options{
		NeedAuth: conf.Inspect.NeedAuth,
		Metrics:  recorder.Handler(),
		Logger:   baseLogger,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		if err := httpServer.Serve(ctx, 10*time.Second); err != nil {
			errCh <- fmt.Errorf("inspect server stopped: %w", err)
			return
		}
		errCh <- nil
	}()
	go func() {
		if err := conn.Run(ctx); err != nil {
			errCh <- fmt.Errorf("gateway stopped: %w", err)
			return
		}
		errCh <- nil
	}()
	logs.Info("gateway started", zap.String("inspect_addr", httpServer.Addr()))

	pending := 2
	select {
	case <-ctx.Done():
		logs.Info("收到退出信号，准备优雅退出")
	case err := <-errCh:
		pending--
		if err != nil {
			logs.Error("服务异常退出", zap.Error(err))
		}
	}
	stop()
	for ; pending > 0; pending-- {
		if err := <-errCh; err != nil {
			logs.Warn("退出时组件返回错误", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := runtime.Drain(shutdownCtx); err != nil {
		logs.Warn("dispatch 队列未能在退出前处理完", zap.Error(err))
	}
	_ = cl.Close(shutdownCtx)
}
