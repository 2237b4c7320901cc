// Copyright 2020 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

/*
The examid package contains tools and functions for sorting out a pile of
scanned exam submissions: working out which student wrote each one, by
reading the handwritten student number from the ID box printed on the
paper, and which version of the question paper each was written on.

Introduction

Submissions are given as a directory, where each submission is either a
PDF, which is rasterized with pdftoppm, or a directory of page images. The
name of the PDF or directory is used as the submission id throughout.

There are three commands, each of which will give information on what they
do and how they work with the '-h' flag:
  identify     match submissions to students from a roster
  cluster      group submissions into versions of the question paper
  getversions  download the saved results for an assignment

Presuming you have the go tools installed, you can install them with:
  go install rescribe.xyz/examid/cmd/...

Configuration

Settings are read from a YAML file, given with the '-c' flag or the
EXAMID_CONFIG environment variable, and then from environment variables
named after each setting with an EXAMID_ prefix, so for example:
  EXAMID_ID_LENGTH=7 identify -v hw1 roster.csv scans/

The identify command needs at least a template image of the ID box
('template', a PNG whose alpha channel marks the pixels to match) and a
digit classifier in ONNX format ('model', along with 'onnx_runtime' if
the onnxruntime library is not in the usual place).

How identification works

The ID box is found on each page by template matching, and the area
inside it is split into one cell per digit of the student number, after
the printed lines are painted out. Each cell is cropped to its ink,
scaled into a 20x20 box and centred by its centre of mass in a 28x28
image, just like the MNIST digits the classifier was trained on.

The classifier gives a probability for each digit 0-9 in each cell, and
the probability that the box contains a given student number is the
product of the probabilities of its digits. The best student on the
roster is accepted if that probability is at least 1000 * 0.1^L, for an
L digit student number. If not, the digits are read again after a series
of morphological changes (dilate, erode, open, close, and so on), which
often helps with faint or smudged handwriting, until one is accepted.

A submission is matched to a student if any of its pages is. If pages of
the same submission match different students the submission is marked
'ambiguous' and left for someone to check. Ambiguous and unmatched ID
boxes are collected in a review PDF, and the confidence of every match is
plotted in graph.png, so that doubtful ones are easy to find.

How clustering works

For clustering, part of one or more pages of each submission is
binarised and OCRed, with tesseract or the gosseract library. The texts
are compared with TF-IDF, ignoring common English words and words which
appear in too few or too many submissions, and grouped with DBSCAN.
Submissions which don't fit into any group are outliers, and are given
no version. One image per version is saved, so the versions can be told
apart by eye.

Every clustering run replaces the previous results for the assignment
completely; nothing from an earlier run is kept.

Storage

Results are saved either locally ('storage: local', in a directory under
'tempdir') or to an S3 bucket ('storage: aws'). For an assignment named
hw1 the layout is:
  hw1/identification             tab separated results per submission
  hw1/graph.png                  confidence graph
  hw1/review.pdf                 ID boxes which need checking by hand
  hw1/versions/index             versions and representatives
  hw1/versions/<run>/version-N.png
  hw1/versions/<run>/versions.pdf

If 'metrics_file' is set, a summary of each run is also written there in
the prometheus textfile format, for the node_exporter textfile collector.
*/
package examid
