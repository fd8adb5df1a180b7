package bridge

import (
	"encoding/json"
	"fmt"
)

// Op names understood by the view interpreter (lwc.js).
const (
	OpChartCreate        = "chart.create"
	OpChartSetData       = "chart.setData"
	OpChartUpdate        = "chart.update"
	OpChartWatermark     = "chart.watermark"
	OpChartLegend        = "chart.legend"
	OpSeriesCreate       = "series.create"
	OpSeriesSetData      = "series.setData"
	OpSeriesRemove       = "series.remove"
	OpVolumeProfile      = "volumeProfile.create"
	OpTopbarTextbox      = "topbar.textbox"
	OpTopbarSwitcher     = "topbar.switcher"
	OpDrawingCreate      = "drawing.create"
	OpDrawingUpdate      = "drawing.update"
	OpDrawingOptions     = "drawing.applyOptions"
	OpDrawingDetach      = "drawing.detach"
	OpToolboxCreate      = "toolbox.create"
	OpToolboxLoad        = "toolbox.load"
	OpToolboxAddDrawing  = "toolbox.addDrawing"
	OpMeasureRoute       = "measure.route"
	OpMeasureLengthStyle = "measure.lengthDisplay"
)

// Command is one host → view instruction. Args is any JSON-serializable
// record; the view interpreter is the only place that knows how an op maps
// onto the charting engine.
type Command struct {
	Op     string `json:"op"`
	Chart  string `json:"chart,omitempty"`
	Target string `json:"target,omitempty"`
	Args   any    `json:"args,omitempty"`
}

// Script renders the command as a self-contained expression that returns the
// {ok,data,error_code,error_message} envelope.
func (c Command) Script() (string, error) {
	if c.Op == "" {
		return "", NewError(CodeValidation, "command op is required", nil)
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("bridge: marshal %s: %w", c.Op, err)
	}
	return WrapEval(`
if (!window.lwc || typeof window.lwc.exec !== "function") {
  return JSON.stringify({ok:false,error_code:"` + CodeViewUnavailable + `",error_message:"lwc interpreter not loaded"});
}
var data = window.lwc.exec(` + string(payload) + `);
return JSON.stringify({ok:true,data:data === undefined ? null : data});
`), nil
}

// WrapEval wraps body in an IIFE that turns thrown errors into a failed
// envelope.
func WrapEval(body string) string {
	return `(function(){
try {
` + body + `
} catch (err) {
return JSON.stringify({ok:false,error_code:"` + CodeEvalFailure + `",error_message:String(err && err.message || err)});
}
})()`
}

// Envelope is the JSON result every evaluated script returns.
type Envelope struct {
	OK           bool            `json:"ok"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// DecodeEnvelope parses raw evaluation output and returns the failure as a
// *CodedError when ok is false.
func DecodeEnvelope(raw string) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return Envelope{}, NewError(CodeEvalFailure, "invalid evaluation envelope", err)
	}
	if !env.OK {
		code := env.ErrorCode
		if code == "" {
			code = CodeEvalFailure
		}
		return env, NewError(code, env.ErrorMessage, nil)
	}
	return env, nil
}
