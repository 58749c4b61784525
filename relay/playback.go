package relay

import "github.com/sirupsen/logrus"

// playbackLoop waits for queued frames and renders them to the output
// device. The wait is bounded so the quit flag is re-checked at least
// every queueWaitTimeout even when the peer is silent. Quit takes
// priority over pending data: once shutdown is requested, at most one
// undrained batch remains, which is acceptable for a deliberate
// teardown.
func (r *Relay) playbackLoop() {
	defer close(r.playbackDone)

	for {
		if r.queue.Wait(queueWaitTimeout) {
			logrus.Debug("playback is starving")
		}

		if r.playbackQuit.Load() {
			logrus.Debug("playback loop exited")
			return
		}

		for _, queued := range r.queue.Drain() {
			pcm, err := r.transform.PlaybackFrame(queued)
			if err != nil {
				logrus.WithField("error", err.Error()).Warn("playback transform failed, frame dropped")
				continue
			}
			if err := r.out.Play(pcm); err != nil {
				logrus.WithFields(logrus.Fields{
					"size":  len(pcm),
					"error": err.Error(),
				}).Warn("device play failed")
			}
		}
	}
}
