package server

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"io"

	"github.com/tmanhococ/V2-Odoo-Agent/errors"
)

// maxLineSize bounds a single stdio message, matching the HTTP body cap.
const maxLineSize = MaxRequestBodySize

var errMessageTooLarge = stderrors.New("message exceeds size limit")

// ServeStdio reads newline-delimited JSON-RPC messages from r and writes
// responses to w, one per line. An oversized message gets an error
// response and the loop moves on to the next line, like the HTTP
// transport rejects one request without closing the server. It returns
// when r is exhausted or ctx is cancelled between messages.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReaderSize(r, 64*1024)

	s.logger.Info("stdio transport ready")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := readMessage(reader)
		switch {
		case err == io.EOF:
			return nil
		case err == errMessageTooLarge:
			s.logger.Warn("dropping oversized stdio message", "limit", maxLineSize)
			resp := marshalResponse(errorResponse(nil, codeInvalidRequest, "message exceeds size limit"))
			if _, werr := w.Write(append(resp, '\n')); werr != nil {
				return errors.Wrapf(werr, "failed to write response")
			}
			continue
		case err != nil:
			return errors.Wrapf(err, "failed to read request")
		}

		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		resp := s.HandleMessage(ctx, line)
		if resp == nil {
			continue
		}
		if _, err := w.Write(append(resp, '\n')); err != nil {
			return errors.Wrapf(err, "failed to write response")
		}
	}
}

// readMessage reads one newline-delimited message. A line over maxLineSize
// fails with errMessageTooLarge after draining the rest of the line, so
// the next message starts clean.
func readMessage(r *bufio.Reader) ([]byte, error) {
	var msg []byte
	for {
		chunk, err := r.ReadSlice('\n')
		msg = append(msg, chunk...)
		switch {
		case err == nil:
			return bytes.TrimRight(msg, "\r\n"), nil
		case err == bufio.ErrBufferFull:
			if len(msg) > maxLineSize {
				drainLine(r)
				return nil, errMessageTooLarge
			}
		case err == io.EOF:
			if len(msg) == 0 {
				return nil, io.EOF
			}
			return msg, nil
		default:
			return nil, err
		}
	}
}

func drainLine(r *bufio.Reader) {
	for {
		if _, err := r.ReadSlice('\n'); err != bufio.ErrBufferFull {
			return
		}
	}
}
