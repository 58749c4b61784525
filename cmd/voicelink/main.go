// Command voicelink is a bidirectional point-to-point voice relay over
// UDP. It reads raw PCM from standard input, ships it to a peer, and
// plays the peer's stream on the local output device. By default frames
// are Opus-compressed and reordered through a jitter buffer; -raw
// selects uncompressed PCM with paced sends.
//
// Usage:
//
//	voicelink [flags] <remote-addr> <remote-port> <local-port>
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/voicelink/audiodev"
	"github.com/opd-ai/voicelink/codec"
	"github.com/opd-ai/voicelink/relay"
	"github.com/opd-ai/voicelink/transport"
)

const version = "0.2.0"

// Sample rate defaults per mode. Raw mode matches telephony-band PCM;
// compressed mode runs the codec at wideband.
const (
	defaultRawRate  = 8000
	defaultOpusRate = 16000
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] <remote-addr> <remote-port> <local-port>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	var (
		bits         = flag.Int("b", 16, "bits per sample")
		rate         = flag.Int("r", 0, "sample rate in Hz (default 8000 raw, 16000 compressed)")
		channels     = flag.Int("c", 1, "number of channels")
		deviceIndex  = flag.Int("d", audiodev.UseDefaultDevice, "output device index (default: system default)")
		rawMode      = flag.Bool("raw", false, "relay uncompressed PCM instead of Opus")
		verbose      = flag.Bool("v", false, "verbose (debug) logging")
		printVersion = flag.Bool("V", false, "print version and exit")
	)
	flag.Usage = usage
	flag.Parse()

	if *printVersion {
		fmt.Printf("voicelink %s\n", version)
		return
	}

	if flag.NArg() != 3 {
		usage()
		os.Exit(2)
	}
	remoteHost, remotePort, localPort := flag.Arg(0), flag.Arg(1), flag.Arg(2)

	logrus.SetLevel(logrus.InfoLevel)
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if *rate == 0 {
		if *rawMode {
			*rate = defaultRawRate
		} else {
			*rate = defaultOpusRate
		}
	}

	transform, err := buildTransform(*rawMode, *rate, *channels)
	if err != nil {
		logrus.WithField("error", err.Error()).Fatal("codec initialization failed")
	}

	conn, err := transport.New(transport.Config{
		RemoteHost: remoteHost,
		RemotePort: remotePort,
		LocalPort:  localPort,
	})
	if err != nil {
		logrus.WithField("error", err.Error()).Fatal("endpoint initialization failed")
	}

	out, err := audiodev.Open(audiodev.Config{
		SampleRate:  *rate,
		Bits:        *bits,
		Channels:    *channels,
		DeviceIndex: *deviceIndex,
	})
	if err != nil {
		_ = conn.Close()
		reportDeviceFailure(err)
	}

	source, err := relay.NewStdinSource()
	if err != nil {
		_ = out.Close()
		_ = conn.Close()
		logrus.WithField("error", err.Error()).Fatal("capture source initialization failed")
	}

	r, err := relay.New(transform, conn, out, source)
	if err != nil {
		_ = out.Close()
		_ = conn.Close()
		logrus.WithField("error", err.Error()).Fatal("relay assembly failed")
	}

	installSignalHandlers(r)

	logrus.WithFields(logrus.Fields{
		"version":     version,
		"mode":        modeName(*rawMode),
		"sample_rate": *rate,
		"bits":        *bits,
		"channels":    *channels,
		"peer":        conn.RemoteAddr().String(),
		"local":       conn.LocalAddr().String(),
	}).Info("voicelink starting")

	if err := r.Run(); err != nil {
		logrus.WithField("error", err.Error()).Fatal("relay failed")
	}
}

// buildTransform selects the frame transform for the requested mode.
// Compressed mode is mono only; raw mode accepts any channel count the
// output device supports.
func buildTransform(rawMode bool, rate, channels int) (codec.Transform, error) {
	if rawMode {
		return codec.NewPassthrough(), nil
	}
	return codec.NewOpus(rate, channels)
}

func modeName(rawMode bool) string {
	if rawMode {
		return "raw"
	}
	return "opus"
}

// reportDeviceFailure exits with a diagnostic. A bad device index also
// prints the host's device list so the user can pick a valid one.
func reportDeviceFailure(err error) {
	if names, listErr := audiodev.ListDevices(); errors.Is(err, audiodev.ErrNoSuchDevice) && listErr == nil {
		fmt.Fprintln(os.Stderr, "available output devices:")
		for i, name := range names {
			fmt.Fprintf(os.Stderr, "  %d: %s\n", i, name)
		}
	}
	logrus.WithField("error", err.Error()).Fatal("output device initialization failed")
}

// installSignalHandlers wires SIGINT to the relay's interrupt flag and
// SIGUSR1 to a runtime toggle between Info and Debug logging. Both
// handlers only flip flags; all real work stays on the pipeline
// goroutines.
func installSignalHandlers(r *relay.Relay) {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		r.Interrupt()
	}()

	toggle := make(chan os.Signal, 1)
	signal.Notify(toggle, syscall.SIGUSR1)
	go func() {
		for range toggle {
			if logrus.GetLevel() == logrus.DebugLevel {
				logrus.SetLevel(logrus.InfoLevel)
				logrus.Info("verbose logging disabled")
			} else {
				logrus.SetLevel(logrus.DebugLevel)
				logrus.Info("verbose logging enabled")
			}
		}
	}()
}
