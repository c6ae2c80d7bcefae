package component

import (
	"fmt"

	"github.com/kompox/kprotect/domain/model"
)

const (
	falconHelmRepo = "https://crowdstrike.github.io/falcon-helm"
	kpaHelmRepo    = "https://registry.crowdstrike.com/kpagent-helm"
)

// release is where a component lives in the cluster.
type release struct {
	Chart     model.ChartRef
	Name      string
	Namespace string
	Selector  string
}

var releases = map[model.Component]release{
	model.ComponentSensor: {
		Chart:     model.ChartRef{RepoURL: falconHelmRepo, Name: "falcon-sensor"},
		Name:      "falcon-sensor",
		Namespace: "falcon-system",
		Selector:  "app.kubernetes.io/name=falcon-sensor",
	},
	model.ComponentKAC: {
		Chart:     model.ChartRef{RepoURL: falconHelmRepo, Name: "falcon-kac"},
		Name:      "falcon-kac",
		Namespace: "falcon-kac",
		Selector:  "app.kubernetes.io/name=falcon-kac",
	},
	model.ComponentIAR: {
		Chart:     model.ChartRef{RepoURL: falconHelmRepo, Name: "falcon-image-analyzer"},
		Name:      "falcon-image-analyzer",
		Namespace: "falcon-image-analyzer",
		Selector:  "app.kubernetes.io/name=falcon-image-analyzer",
	},
	model.ComponentKPA: {
		Chart:     model.ChartRef{RepoURL: kpaHelmRepo, Name: "cs-k8s-protection-agent"},
		Name:      "kpagent",
		Namespace: "falcon-kubernetes-protection",
		Selector:  "app=cs-k8s-protection-agent",
	},
}

func releaseFor(c model.Component) (release, error) {
	r, ok := releases[c]
	if !ok {
		return release{}, fmt.Errorf("%w: %s is not a helm release", model.ErrInvalidOptions, c)
	}
	return r, nil
}

// valueInput is everything the chart values of one component depend on.
type valueInput struct {
	Component   model.Component
	ClusterType model.ClusterType
	ClusterName string
	CID         string
	Image       model.ImageRef
	Options     *Options
	// KPA holds the agent values generated by the vendor API.
	KPA map[string]any
}

// chartValues builds the helm values of a vendor component.
func chartValues(in valueInput) model.Values {
	o := in.Options
	if o == nil {
		o = &Options{}
	}
	v := model.Values{}
	switch in.Component {
	case model.ComponentSensor:
		falconValues(v, in.CID, o)
		if in.ClusterType.SensorMode() == model.SensorModeSidecar {
			v.Set("node.enabled", false)
			v.Set("container.enabled", true)
			v.Set("container.image.repository", in.Image.Repository)
			v.Set("container.image.tag", in.Image.Tag)
			if in.Image.PullToken != "" {
				v.Set("container.image.pullSecrets.enable", true)
				v.Set("container.image.pullSecrets.allNamespaces", true)
				v.Set("container.image.pullSecrets.registryConfigJSON", in.Image.PullToken)
			}
			break
		}
		v.Set("node.enabled", true)
		v.Set("container.enabled", false)
		v.Set("node.image.repository", in.Image.Repository)
		v.Set("node.image.tag", in.Image.Tag)
		v.SetIf("node.image.registryConfigJSON", in.Image.PullToken)
		v.SetIf("node.backend", string(o.Backend()))
		if in.ClusterType == model.ClusterTypeGKEAutopilot {
			v.Set("node.gke.autopilot", true)
		}
	case model.ComponentKAC:
		falconValues(v, in.CID, o)
		imageValues(v, in.Image)
	case model.ComponentIAR:
		imageValues(v, in.Image)
		v.Set("deployment.enabled", true)
		v.Set("daemonset.enabled", false)
		v.Set("crowdstrikeConfig.clientID", o.Falcon.ClientID)
		v.Set("crowdstrikeConfig.clientSecret", o.Falcon.ClientSecret)
		v.Set("crowdstrikeConfig.cid", in.CID)
		v.Set("crowdstrikeConfig.clusterName", in.ClusterName)
		v.SetIf("crowdstrikeConfig.agentRegion", string(o.Falcon.Cloud))
		if o.ProxyHost != "" {
			v.Set("proxyConfig.HTTPS_PROXY", proxyURL(o))
		}
	case model.ComponentKPA:
		v = deepCopy(in.KPA)
		imageValues(v, in.Image)
		v.Set("crowdstrikeConfig.clusterName", in.ClusterName)
		if o.ProxyHost != "" {
			v.Set("proxy.httpsProxy", proxyURL(o))
		}
	}
	return v
}

func falconValues(v model.Values, cid string, o *Options) {
	v.Set("falcon.cid", cid)
	v.SetIf("falcon.tags", o.Tags)
	if o.ProxyHost != "" {
		v.Set("falcon.apd", false)
		v.Set("falcon.aph", o.ProxyHost)
		v.SetIf("falcon.app", o.ProxyPort)
	}
}

func imageValues(v model.Values, img model.ImageRef) {
	v.Set("image.repository", img.Repository)
	v.Set("image.tag", img.Tag)
	v.SetIf("image.registryConfigJSON", img.PullToken)
}

func proxyURL(o *Options) string {
	if o.ProxyPort == "" {
		return "http://" + o.ProxyHost
	}
	return "http://" + o.ProxyHost + ":" + o.ProxyPort
}

func deepCopy(m map[string]any) model.Values {
	out := model.Values{}
	for k, val := range m {
		if sub, ok := val.(map[string]any); ok {
			val = map[string]any(deepCopy(sub))
		}
		out[k] = val
	}
	return out
}
