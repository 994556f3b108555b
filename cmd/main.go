package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/satriahrh/xfyun-tts/adapters/speech"
	"github.com/satriahrh/xfyun-tts/adapters/storage"
	"github.com/satriahrh/xfyun-tts/adapters/tts"
	"github.com/satriahrh/xfyun-tts/domain/entities"
	"github.com/satriahrh/xfyun-tts/domain/repositories"
	"github.com/satriahrh/xfyun-tts/usecase"
)

// sampleJobs is the fixed batch this driver synthesizes
var sampleJobs = []entities.SynthesisJob{
	{ID: 0, Text: "习近平：美丽中国不是涂脂抹粉 而是健康习近平勉励少先队员"},
	{ID: 1, Text: "课本中的英烈 我们从未忘记清明策划 红色家书映照初心使命"},
	{ID: 2, Text: "越南国会投票免去阮春福政府总理职务"},
	{ID: 3, Text: "白皮书说，党的十八大以来，中国的核安全事业进入安全高效发展的新时期。" +
		"在核安全观引领下，中国逐步构建起法律规范、行政监管、行业自律、技术保障、" +
		"人才支撑、文化引领、社会参与、国际合作等为主体的核安全治理体系，核安全防线更加牢固。"},
	{ID: 4, Text: "这个问题一般是使用了未授权的发音人，请到控制台检查是否所用发音人未添加，或授权已到期；" +
		"另外，若总合成交互量超过上限也会报错11200。"},
}

func main() {
	godotenv.Load()

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	config, err := tts.NewXfyunConfigFromEnv()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	audioStorage := storage.NewLocalAudioStorage(config.OutputDir, logger)

	var textToSpeech repositories.TextToSpeech
	if os.Getenv("TTS_MODE") == "mock" {
		logger.Info("Using mock text-to-speech")
		textToSpeech = speech.NewMockTextToSpeech(audioStorage, logger)
	} else {
		xfyun, err := tts.NewXfyunTTS(config, audioStorage, logger)
		if err != nil {
			logger.Fatal("Failed to create TTS service", zap.Error(err))
		}
		textToSpeech = xfyun
	}

	// Interrupt stops the batch between jobs and aborts the running session
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service := usecase.NewSynthesisService(textToSpeech, logger)
	outcomes := service.Run(ctx, sampleJobs)

	failed := 0
	for _, o := range outcomes {
		switch {
		case o.Succeeded():
			fmt.Printf("%d: %s\n", o.Result.JobID, o.Result.Path)
		case errors.Is(o.Err, repositories.ErrNoAudio):
			fmt.Printf("%d: %v\n", o.Result.JobID, o.Err)
		case o.Err != nil:
			failed++
			fmt.Printf("%d: error: %v\n", o.Result.JobID, o.Err)
		}
	}

	logger.Info("Batch finished",
		zap.Int("jobs", len(sampleJobs)),
		zap.Int("succeeded", len(usecase.Locations(outcomes))),
		zap.Int("failed", failed))

	if failed > 0 {
		logger.Sync()
		os.Exit(1)
	}
}
