package codec

import "container/heap"

// maxBufferedPackets caps jitter buffer growth when playback stalls.
// When full, the oldest packet is dropped to admit the new one.
const maxBufferedPackets = 64

// JitterBuffer reorders compressed payloads by their sender timestamp
// before decoding. Late packets (at or before the last delivered
// timestamp) and duplicates are dropped and counted.
//
// The buffer is not safe for concurrent use; the owning transform
// serializes access with its codec lock.
type JitterBuffer struct {
	packets packetHeap

	lastDelivered uint32
	delivered     bool

	stats JitterStats
}

// JitterStats reports jitter buffer activity counters.
type JitterStats struct {
	Received   uint64
	Late       uint64
	Duplicates uint64
	Dropped    uint64
	Delivered  uint64
}

type jitterPacket struct {
	timestamp uint32
	data      []byte
}

// packetHeap is a min-heap ordered by timestamp, wraparound-aware.
type packetHeap []jitterPacket

func (h packetHeap) Len() int { return len(h) }
func (h packetHeap) Less(i, j int) bool {
	return int32(h[i].timestamp-h[j].timestamp) < 0
}
func (h packetHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *packetHeap) Push(x interface{}) {
	*h = append(*h, x.(jitterPacket))
}

func (h *packetHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = jitterPacket{}
	*h = old[:n-1]
	return item
}

// NewJitterBuffer creates an empty jitter buffer.
func NewJitterBuffer() *JitterBuffer {
	jb := &JitterBuffer{}
	heap.Init(&jb.packets)
	return jb
}

// Put inserts a payload under the given sender timestamp. The buffer
// takes ownership of data. Packets that arrive after their slot has
// already been delivered, and duplicate timestamps, are discarded.
func (jb *JitterBuffer) Put(data []byte, timestamp uint32) {
	jb.stats.Received++

	if jb.delivered && int32(timestamp-jb.lastDelivered) <= 0 {
		jb.stats.Late++
		return
	}
	for _, p := range jb.packets {
		if p.timestamp == timestamp {
			jb.stats.Duplicates++
			return
		}
	}

	if len(jb.packets) >= maxBufferedPackets {
		heap.Pop(&jb.packets)
		jb.stats.Dropped++
	}
	heap.Push(&jb.packets, jitterPacket{timestamp: timestamp, data: data})
}

// Get removes and returns the oldest buffered payload. The second
// return is the payload's timestamp; ok is false when the buffer is
// empty and the caller must conceal the gap.
func (jb *JitterBuffer) Get() (data []byte, timestamp uint32, ok bool) {
	if len(jb.packets) == 0 {
		return nil, 0, false
	}
	p := heap.Pop(&jb.packets).(jitterPacket)
	jb.lastDelivered = p.timestamp
	jb.delivered = true
	jb.stats.Delivered++
	return p.data, p.timestamp, true
}

// Len returns the number of buffered packets.
func (jb *JitterBuffer) Len() int { return len(jb.packets) }

// Stats returns a snapshot of the buffer's counters.
func (jb *JitterBuffer) Stats() JitterStats { return jb.stats }
