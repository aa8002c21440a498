package helm

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chartutil"
	"helm.sh/helm/v3/pkg/engine"
)

// RenderFromSpec downloads a chart and renders it with the provided values,
// returning the combined multi-document manifest stream.
func RenderFromSpec(spec ChartSpec, releaseName, namespace string, values Values) ([]byte, error) {
	loadedChart, err := DownloadChart(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to download chart: %w", err)
	}
	return renderChart(loadedChart, releaseName, namespace, values)
}

// renderChart runs the helm engine over the chart with values merged on top
// of the chart's defaults.
func renderChart(ch *chart.Chart, releaseName, namespace string, values Values) ([]byte, error) {
	chartDefaults := make(Values)
	if len(ch.Values) > 0 {
		chartDefaults = Values(ch.Values)
	}

	merged := deepMerge(chartDefaults, values)

	releaseOptions := chartutil.ReleaseOptions{
		Name:      releaseName,
		Namespace: namespace,
		IsInstall: true,
	}

	// Advertise a current Kubernetes version so templates emit stable API
	// groups rather than deprecated ones.
	capabilities := chartutil.DefaultCapabilities.Copy()
	capabilities.KubeVersion.Version = "v1.34.0"
	capabilities.KubeVersion.Major = "1"
	capabilities.KubeVersion.Minor = "34"

	valuesToRender, err := chartutil.ToRenderValues(ch, chartutil.Values(merged.ToMap()), releaseOptions, capabilities)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare values: %w", err)
	}

	eng := engine.Engine{}
	rendered, err := eng.Render(ch, valuesToRender)
	if err != nil {
		return nil, fmt.Errorf("failed to render templates: %w", err)
	}

	var combined bytes.Buffer
	for name, content := range rendered {
		if filepath.Base(name) == "NOTES.txt" {
			continue
		}
		trimmed := strings.TrimSpace(content)
		if trimmed == "" {
			continue
		}
		if combined.Len() > 0 {
			combined.WriteString("\n---\n")
		}
		combined.WriteString(trimmed)
		combined.WriteString("\n")
	}

	return combined.Bytes(), nil
}
