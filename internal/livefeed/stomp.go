package livefeed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
)

const stompVersion = "1.2"

func encodeFrame(f *frame.Frame) ([]byte, error) {
	var buf bytes.Buffer
	w := frame.NewWriter(&buf)
	if err := w.Write(f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeFrames reads every frame in one transport message. Heartbeats
// produce no frame.
func decodeFrames(data []byte) ([]*frame.Frame, error) {
	r := frame.NewReader(bytes.NewReader(data))
	var out []*frame.Frame
	for {
		f, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		if f != nil {
			out = append(out, f)
		}
	}
}

func connectFrame(host, credential string, heartbeat time.Duration) *frame.Frame {
	ms := strconv.FormatInt(heartbeat.Milliseconds(), 10)
	f := frame.New(frame.CONNECT,
		frame.AcceptVersion, stompVersion,
		frame.Host, host,
		frame.HeartBeat, ms+","+ms,
	)
	if credential != "" {
		f.Header.Add("Authorization", "Bearer "+credential)
	}
	return f
}

func subscribeFrame(id, destination string) *frame.Frame {
	return frame.New(frame.SUBSCRIBE,
		frame.Id, id,
		frame.Destination, destination,
		frame.Ack, "auto",
	)
}

func sendFrame(destination string, body []byte) *frame.Frame {
	f := frame.New(frame.SEND,
		frame.Destination, destination,
		frame.ContentType, "application/json",
		frame.ContentLength, strconv.Itoa(len(body)),
	)
	f.Body = body
	return f
}

func disconnectFrame() *frame.Frame {
	return frame.New(frame.DISCONNECT)
}

// negotiateHeartbeat applies STOMP heart-beat negotiation to the server's
// CONNECTED header. It returns how often we send and how long we wait.
func negotiateHeartbeat(ours time.Duration, header string) (send, expect time.Duration) {
	if ours <= 0 {
		return 0, 0
	}
	parts := strings.Split(header, ",")
	if len(parts) != 2 {
		return ours, ours
	}
	sx, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	sy, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return ours, ours
	}
	if sy > 0 {
		send = max(ours, time.Duration(sy)*time.Millisecond)
	}
	if sx > 0 {
		expect = max(ours, time.Duration(sx)*time.Millisecond)
	}
	return send, expect
}

// frameError turns an ERROR frame into an error.
func frameError(f *frame.Frame) error {
	msg := f.Header.Get(frame.Message)
	if msg == "" {
		msg = strings.TrimSpace(string(f.Body))
	}
	return fmt.Errorf("stomp error frame: %s", msg)
}
