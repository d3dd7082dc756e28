// Package bufctrl is the per-frame dynamic control plane of a hardware video
// codec.
//
// Each codec context keeps an ordered list of controls (quantization bounds,
// frame rate and bitrate changes, temporal layer configuration, ROI buffer
// selection, frame tags, profile and level). Before a frame is submitted the
// caller sets desired values; ApplyControls writes them to the device, either
// directly to registers (ModeSynchronous) or into a command descriptor that
// is handed to firmware as a batch (ModeQueued). After the frame,
// CollectControls reads produced values back. If the submission is aborted
// before the device consumed it, RecoverControls restores the snapshot of
// every volatile control.
//
// A typical frame:
//
//	ctl := bufctrl.New(bufctrl.Options{Logger: logger})
//	c := bufctrl.NewContext(id, bufctrl.KindEncoder, bufctrl.CodecH264)
//	ctl.SetControl(c, bufctrl.IDFrameTag, 42)
//	ctl.SetControl(c, bufctrl.IDBitRate, 4_000_000)
//	if err := ctl.ApplyControls(c, bufctrl.ModeSynchronous, regs); err != nil {
//		return err
//	}
//	// device runs the frame
//	values, _ := ctl.CollectControls(c, bufctrl.ModeSynchronous, regs)
//	for id, v := range values {
//		logger.Info("control", "id", id, "value", v)
//	}
//
// Unknown control ids and out-of-range resolver input are logged and
// reported to the Observer; they never fail a submission.
package bufctrl
