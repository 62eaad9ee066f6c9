// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "Taskerino")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "taskerino.log")

	viper.SetDefault("audio.capture.device", "")
	viper.SetDefault("audio.capture.samplerate", 48000)
	viper.SetDefault("audio.capture.channels", 1)
	viper.SetDefault("audio.capture.bufferframes", 480)
	viper.SetDefault("audio.capture.maxqueue", 20000)

	viper.SetDefault("audio.loopback.enabled", false)

	viper.SetDefault("audio.mix.mode", "weighted")
	viper.SetDefault("audio.mix.balance", 0.5)
	viper.SetDefault("audio.mix.mastergain", 1.0)

	viper.SetDefault("audio.resample.enabled", false)
	viper.SetDefault("audio.resample.targetrate", 16000)
	viper.SetDefault("audio.resample.chunksize", 480)

	viper.SetDefault("audio.normalize.enabled", false)
	viper.SetDefault("audio.normalize.targetdb", -1.0)
	viper.SetDefault("audio.normalize.lookaheadms", 5)

	viper.SetDefault("audio.silence.thresholddb", -50.0)
	viper.SetDefault("audio.silence.mindurationms", 2000)

	viper.SetDefault("audio.graph.maxqueuesize", 64)

	viper.SetDefault("output.path", "recordings/")
	viper.SetDefault("output.bitdepth", 16)
	viper.SetDefault("output.float", false)

	viper.SetDefault("diagnostics.enabled", false)
	viper.SetDefault("diagnostics.listen", "127.0.0.1:8844")
}
